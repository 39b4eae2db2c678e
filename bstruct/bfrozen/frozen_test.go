package bfrozen

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_Derivations(t *testing.T) {
	m := NewMap(P("a", 1), P("b", 2), P("c", 3))

	without := m.CopyWithout("b")
	assert.Equal(t, []string{"a", "c"}, without.Keys())
	assert.Equal(t, 3, m.Len())

	with, err := m.CopyWith(P("b", 20), P("d", 4))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, with.Keys())
	b, ok := with.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 20, b)

	original, _ := m.Get("b")
	assert.Equal(t, 2, original)
}

func TestMap_KeysIsACopy(t *testing.T) {
	m := NewMap(P("a", 1))
	keys := m.Keys()
	keys[0] = "z"
	assert.Equal(t, []string{"a"}, m.Keys())
}

func TestMap_MarshalJSONKeepsOrder(t *testing.T) {
	m := NewMap(P("z", 1), P("a", 2))
	bs, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":2}`, string(bs))
}

func TestFreeze_NestedAndAliased(t *testing.T) {
	shared := map[string]any{"size": 4}
	doc := map[string]any{
		"first":  shared,
		"second": shared,
		"list":   []any{1, "two", map[string]bool{"x": true}},
	}

	frozen, err := Freeze(doc)
	require.NoError(t, err)
	root, ok := frozen.(Map[string, any])
	require.True(t, ok)

	first, _ := root.Get("first")
	second, _ := root.Get("second")
	assert.Equal(t, first, second)

	listAny, _ := root.Get("list")
	list := listAny.(List[any])
	assert.Equal(t, 3, list.Len())
	assert.True(t, list.At(2).(Set[any]).Has("x"))

	shared["size"] = 8
	size, _ := first.(Map[string, any]).Get("size")
	assert.Equal(t, 4, size)
}

func TestFreeze_Cycle(t *testing.T) {
	doc := map[string]any{}
	doc["self"] = doc

	_, err := Freeze(doc)
	assert.True(t, errors.Is(err, ErrCycle))
}

func TestMap_CopyWithFreezesValues(t *testing.T) {
	m := NewMap(P[string, any]("a", 1))
	nested := map[string]any{"x": "original"}
	tags := []any{"one"}

	with, err := m.CopyWith(P[string, any]("n", nested), P[string, any]("tags", tags))
	require.NoError(t, err)
	nested["x"] = "mutated"
	tags[0] = "changed"

	n, _ := with.Get("n")
	x, _ := n.(Map[string, any]).Get("x")
	assert.Equal(t, "original", x)
	list, _ := with.Get("tags")
	assert.Equal(t, "one", list.(List[any]).At(0))

	cyclic := map[string]any{}
	cyclic["self"] = cyclic
	_, err = m.CopyWith(P[string, any]("c", cyclic))
	assert.True(t, errors.Is(err, ErrCycle))

	_, err = FreezeMap(P("raw", map[string]int{"a": 1}))
	assert.Error(t, err)
}

func TestMap_BytesAreCopies(t *testing.T) {
	frozen, err := Freeze(map[string]any{"magic": []byte{1, 2}, "list": []any{[]byte{3}}})
	require.NoError(t, err)
	m := frozen.(Map[string, any])

	magic, _ := m.Get("magic")
	magic.([]byte)[0] = 9
	again, _ := m.Get("magic")
	assert.Equal(t, []byte{1, 2}, again)

	m.Range(func(k string, v any) bool {
		if bs, ok := v.([]byte); ok {
			bs[1] = 9
		}
		return true
	})
	again, _ = m.Get("magic")
	assert.Equal(t, []byte{1, 2}, again)

	list, _ := m.Get("list")
	list.(List[any]).At(0).([]byte)[0] = 9
	assert.Equal(t, []byte{3}, list.(List[any]).At(0))
}
