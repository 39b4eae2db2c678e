package bdesc

import (
	"strings"

	"github.com/thanhnguyen2187/bindef/bstruct/bfrozen"
)

// keywords are descriptor keys, which cannot double as field names.
var keywords = bfrozen.NewSet(
	"CASE", "CASES", "NAME", "SIZE", "SUB_STRUCT", "TYPE", "VALUE", "ALIGN",
	"INCLUDE", "CARRY_OFF", "DEFAULT", "ENDIAN", "MAX", "MIN", "OFFSET",
	"POINTER", "ENTRIES", "NAME_MAP", "VALUE_MAP", "ATTR_OFFS", "ORIG_DESC",
	"CHILD", "PARENT", "DESC", "GUI_NAME", "EDITABLE", "VISIBLE", "ORIENT",
	"STEPTREE", "CASE_MAP", "DECODER", "ENCODER",
)

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlphaNumeric(c byte) bool {
	return isAlpha(c) || (c >= '0' && c <= '9')
}

// strToName turns s into an identifier: leading characters are skipped
// until a letter or underscore, and each run of other invalid characters
// becomes one underscore. It returns "" when nothing usable is left.
func strToName(s string) string {
	var b strings.Builder
	i := 0
	for ; i < len(s); i++ {
		if isAlpha(s[i]) {
			b.WriteByte(s[i])
			i++
			break
		}
	}
	skipped := false
	for ; i < len(s); i++ {
		switch {
		case isAlphaNumeric(s[i]):
			b.WriteByte(s[i])
			skipped = false
		case !skipped:
			b.WriteByte('_')
			skipped = true
		}
	}
	return b.String()
}
