package bfrozen

import (
	"fmt"
	"reflect"
	"sort"
)

// sortedKeys orders map keys so that frozen output is deterministic; Go maps
// carry no order of their own.
func sortedKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}
