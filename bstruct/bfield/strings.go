package bfield

import (
	"bytes"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

type charset struct {
	suffix   string
	charSize int
	// little and big are nil for ascii and utf8, which are checked by hand.
	little      encoding.Encoding
	big         encoding.Encoding
	endianAware bool
}

var charsets = []charset{
	{suffix: "Ascii", charSize: 1},
	{suffix: "Utf8", charSize: 1},
	{suffix: "Latin1", charSize: 1, little: charmap.ISO8859_1, big: charmap.ISO8859_1},
	{
		suffix: "Utf16", charSize: 2, endianAware: true,
		little: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
		big:    unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	},
	{
		suffix: "Utf32", charSize: 4, endianAware: true,
		little: utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM),
		big:    utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
	},
	{suffix: "Cp437", charSize: 1, little: charmap.CodePage437, big: charmap.CodePage437},
	{suffix: "Cp850", charSize: 1, little: charmap.CodePage850, big: charmap.CodePage850},
	{suffix: "Cp1250", charSize: 1, little: charmap.Windows1250, big: charmap.Windows1250},
	{suffix: "Cp1251", charSize: 1, little: charmap.Windows1251, big: charmap.Windows1251},
	{suffix: "Cp1252", charSize: 1, little: charmap.Windows1252, big: charmap.Windows1252},
	{suffix: "Iso8859_2", charSize: 1, little: charmap.ISO8859_2, big: charmap.ISO8859_2},
	{suffix: "Iso8859_15", charSize: 1, little: charmap.ISO8859_15, big: charmap.ISO8859_15},
	{suffix: "Koi8_r", charSize: 1, little: charmap.KOI8R, big: charmap.KOI8R},
	{suffix: "ShiftJis", charSize: 1, little: japanese.ShiftJIS, big: japanese.ShiftJIS},
	{suffix: "EucKr", charSize: 1, little: korean.EUCKR, big: korean.EUCKR},
	{suffix: "Gbk", charSize: 1, little: simplifiedchinese.GBK, big: simplifiedchinese.GBK},
	{suffix: "Big5", charSize: 1, little: traditionalchinese.Big5, big: traditionalchinese.Big5},
}

func (c charset) encodingFor(t *Type) encoding.Encoding {
	if t.endian == Big {
		return c.big
	}
	return c.little
}

func (c charset) decodeText(t *Type, raw []byte) (string, error) {
	switch c.suffix {
	case "Ascii":
		for i, b := range raw {
			if b >= 0x80 {
				return "", decodeErr(t, "byte %#x at %d is not ascii", b, i)
			}
		}
		return string(raw), nil
	case "Utf8":
		if !utf8.Valid(raw) {
			return "", decodeErr(t, "invalid utf-8")
		}
		return string(raw), nil
	}
	if len(raw)%c.charSize != 0 {
		return "", decodeErr(t, "%d bytes is not a multiple of the character size %d", len(raw), c.charSize)
	}
	decoded, err := c.encodingFor(t).NewDecoder().Bytes(raw)
	if err != nil {
		return "", decodeErr(t, "%v", err)
	}
	return string(decoded), nil
}

func (c charset) encodeText(t *Type, s string) ([]byte, error) {
	switch c.suffix {
	case "Ascii":
		for i := 0; i < len(s); i++ {
			if s[i] >= 0x80 {
				return nil, encodeErr(t, s, "character at %d is not ascii", i)
			}
		}
		return []byte(s), nil
	case "Utf8":
		return []byte(s), nil
	}
	encoded, err := c.encodingFor(t).NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, encodeErr(t, s, "%v", err)
	}
	return encoded, nil
}

// delimiterIndex finds the first delimiter that starts on a character boundary.
func delimiterIndex(raw []byte, delimiter []byte) int {
	step := len(delimiter)
	for i := 0; i+step <= len(raw); i += step {
		if bytes.Equal(raw[i:i+step], delimiter) {
			return i
		}
	}
	return -1
}

func (c charset) decodeDelimited(t *Type, raw []byte) (any, error) {
	if i := delimiterIndex(raw, t.delimiter); i >= 0 {
		raw = raw[:i]
	}
	return c.decodeText(t, raw)
}

func (c charset) decodeRaw(t *Type, raw []byte) (any, error) {
	return c.decodeText(t, raw)
}

func (c charset) encodeDelimited(t *Type, native any, _ int) ([]byte, error) {
	encoded, err := c.encodeText(t, native.(string))
	if err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(encoded, t.delimiter) || len(encoded)%c.charSize != 0 {
		encoded = append(encoded, t.delimiter...)
	}
	return encoded, nil
}

func (c charset) encodeRaw(t *Type, native any, _ int) ([]byte, error) {
	return c.encodeText(t, native.(string))
}

func scanDelimited(t *Type, rest []byte) (int, int, error) {
	i := delimiterIndex(rest, t.delimiter)
	if i < 0 {
		return 0, 0, decodeErr(t, "delimiter %x not found", t.delimiter)
	}
	return i, i + len(t.delimiter), nil
}

func sizeCalcEncoded(t *Type, native any) (int, error) {
	encoded, err := t.encode(t, native, 0)
	if err != nil {
		return 0, err
	}
	return len(encoded), nil
}

func decodeHex(_ *Type, raw []byte) (any, error) {
	return hex.EncodeToString(raw), nil
}

func encodeHex(t *Type, native any, _ int) ([]byte, error) {
	s := strings.TrimPrefix(native.(string), "0x")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	bs, err := hex.DecodeString(s)
	if err != nil {
		return nil, encodeErr(t, native, "%v", err)
	}
	return bs, nil
}

func sizeCalcHex(_ *Type, native any) (int, error) {
	return (len(strings.TrimPrefix(native.(string), "0x")) + 1) / 2, nil
}

func stringSpecs() []Spec {
	specs := make([]Spec, 0, len(charsets)*4+2)
	for _, c := range charsets {
		c := c
		delimiter := make([]byte, c.charSize)
		base := Spec{
			Kind:        KindData,
			Size:        c.charSize,
			VarSize:     true,
			Str:         true,
			Delimited:   true,
			Delimiter:   delimiter,
			EndianAware: c.endianAware,
			Enc:         strings.ToLower(c.suffix),
			Value:       ValueString,
			SizeCalc:    sizeCalcEncoded,
		}

		str := base
		str.Name = "Str" + c.suffix
		str.Decode = c.decodeDelimited
		str.Encode = c.encodeDelimited

		nnt := base
		nnt.Name = "StrNnt" + c.suffix
		nnt.Decode = c.decodeDelimited
		nnt.Encode = c.encodeRaw

		cstr := base
		cstr.Name = "CStr" + c.suffix
		cstr.OpenEnded = true
		cstr.Decode = c.decodeRaw
		cstr.Encode = c.encodeDelimited
		cstr.Scan = scanDelimited

		raw := base
		raw.Name = "StrRaw" + c.suffix
		raw.Delimited = false
		raw.Decode = c.decodeRaw
		raw.Encode = c.encodeRaw

		specs = append(specs, str, nnt, cstr, raw)
	}

	ascii := charsets[0]
	specs = append(specs,
		Spec{
			Name: "StrHex", Kind: KindData, Size: 1, VarSize: true, Str: true,
			Enc: "hex", Value: ValueString,
			Decode: decodeHex, Encode: encodeHex, SizeCalc: sizeCalcHex,
		},
		Spec{
			Name: "StrAsciiEnum", Kind: KindData, Size: 1, VarSize: true, Str: true,
			Enum: true, Delimited: true, Delimiter: []byte{0}, Enc: "ascii",
			Value: ValueString, SizeCalc: sizeCalcEncoded,
			Decode: ascii.decodeDelimited, Encode: ascii.encodeRaw,
		},
	)
	return specs
}
