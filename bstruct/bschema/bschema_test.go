package bschema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/thanhnguyen2187/bindef/bstruct/bbuf"
	"github.com/thanhnguyen2187/bindef/bstruct/bcodec"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
	"gopkg.in/yaml.v3"
)

const recordYAML = `
endian: big
fragments:
  point:
    type: Struct
    entries:
      - {type: SInt16, name: x}
      - {type: SInt16, name: y}
root:
  type: Container
  name: record
  entries:
    - {type: UInt8, name: kind}
    - type: Switch
      name: body
      case: .kind
      cases:
        1: point
        0x2: {type: Struct, name: wide, entries: [{type: UInt32, name: v}]}
      default_case: {type: Void, name: nothing}
    - {type: UEnum8, name: color, entries: [red, green, {name: blue, value: 7}]}
    - {type: UInt16, name: checksum, comment: "forwarded as metadata"}
`

const recordJSONC = `{
  // same layout as the YAML document
  "endian": "big",
  "fragments": {
    "point": {"type": "Struct", "entries": [
      {"type": "SInt16", "name": "x"},
      {"type": "SInt16", "name": "y"},
    ]},
  },
  "root": {
    "type": "Container", "name": "record",
    "entries": [
      {"type": "UInt8", "name": "kind"},
      {"type": "Switch", "name": "body", "case": ".kind",
       "cases": {"1": "point", "2": {"type": "Struct", "name": "wide", "entries": [{"type": "UInt32", "name": "v"}]}},
       "default_case": {"type": "Void", "name": "nothing"}},
      {"type": "UEnum8", "name": "color", "entries": ["red", "green", {"name": "blue", "value": 7}]},
      {"type": "UInt16", "name": "checksum", "comment": "forwarded as metadata"},
    ],
  },
}`

type SchemaTestSuite struct {
	Doc  *Document
	Desc *bdesc.Descriptor
	R    *require.Assertions
	suite.Suite
}

func (suite *SchemaTestSuite) SetupSuite() {
	suite.R = suite.Require()
	doc, err := Decode([]byte(recordYAML), FormatYAML, nil)
	suite.R.NoError(err)
	suite.Doc = doc
	suite.Desc, err = doc.Sanitize(bdesc.Options{})
	suite.R.NoError(err)
}

func (suite *SchemaTestSuite) TestDocument() {
	suite.Equal(bfield.Big, suite.Doc.Endian)
	suite.Contains(suite.Doc.Fragments, "point")
	suite.Equal("record", suite.Desc.Name())
	suite.Equal(4, suite.Desc.Len())

	body := suite.Desc.Entry(1)
	suite.Equal([]any{int64(1), int64(2)}, body.CaseKeys())
	suite.Equal(bfield.Big, body.Cases()[0].Entry(0).Type().Endian())

	color := suite.Desc.Entry(2)
	i, ok := color.OptionIndex("blue")
	suite.R.True(ok)
	suite.Equal(int64(7), color.Entry(i).Value())

	comment, ok := suite.Desc.Entry(3).Meta().Get("comment")
	suite.R.True(ok)
	suite.Equal("forwarded as metadata", comment)
}

func (suite *SchemaTestSuite) TestRead() {
	root, err := bcodec.Read(suite.Desc, bbuf.NewBytes([]byte{1, 0xFF, 0xFE, 0x00, 0x02, 7, 0x12, 0x34}), bcodec.ReadOptions{})
	suite.R.NoError(err)
	body, ok := root.Block(1)
	suite.R.True(ok)
	x, err := body.Get("x")
	suite.R.NoError(err)
	suite.Equal(int64(-2), x)
	name, err := root.EnumName(2)
	suite.R.NoError(err)
	suite.Equal("blue", name)
	checksum, err := root.Get("checksum")
	suite.R.NoError(err)
	suite.Equal(int64(0x1234), checksum)
}

func (suite *SchemaTestSuite) TestFormatsAgree() {
	want, err := Fingerprint(suite.Desc)
	suite.R.NoError(err)

	jsonDoc, err := Decode([]byte(recordJSONC), FormatJSONC, nil)
	suite.R.NoError(err)
	jsonDesc, err := jsonDoc.Sanitize(bdesc.Options{})
	suite.R.NoError(err)
	got, err := Fingerprint(jsonDesc)
	suite.R.NoError(err)
	suite.Equal(want, got)

	var tree any
	suite.R.NoError(yaml.Unmarshal([]byte(recordYAML), &tree))
	encoded, err := canonical.Marshal(normalize(tree))
	suite.R.NoError(err)
	cborDoc, err := Decode(encoded, FormatCBOR, nil)
	suite.R.NoError(err)
	cborDesc, err := cborDoc.Sanitize(bdesc.Options{})
	suite.R.NoError(err)
	got, err = Fingerprint(cborDesc)
	suite.R.NoError(err)
	suite.Equal(want, got)
}

func (suite *SchemaTestSuite) TestFingerprintTracksLayout() {
	little, err := suite.Doc.Sanitize(bdesc.Options{})
	suite.R.NoError(err)
	a, err := Fingerprint(little)
	suite.R.NoError(err)

	suite.Doc.Endian = bfield.Little
	defer func() { suite.Doc.Endian = bfield.Big }()
	swapped, err := suite.Doc.Sanitize(bdesc.Options{})
	suite.R.NoError(err)
	b, err := Fingerprint(swapped)
	suite.R.NoError(err)
	suite.NotEqual(a, b)
	suite.Len(a.String(), 64)
}

func TestSchemaTestSuite(t *testing.T) {
	suite.Run(t, new(SchemaTestSuite))
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte("root: {type: Struct, sub_struct: missing, align: two}"), FormatYAML, nil)
	var conversionErr *ConversionError
	require.True(t, errors.As(err, &conversionErr))
	assert.Len(t, conversionErr.Messages, 2)
	assert.Contains(t, conversionErr.Messages[0], "align must be an integer")
	assert.Contains(t, conversionErr.Messages[1], `unknown fragment "missing"`)

	_, err = Decode([]byte("fragments: {}"), FormatYAML, nil)
	assert.True(t, errors.As(err, &conversionErr))

	_, err = Decode([]byte("- a\n- b"), FormatYAML, nil)
	assert.Error(t, err)

	_, err = Decode([]byte("root: {type: StreamAdapter, stream: gzip}"), FormatYAML, nil)
	assert.True(t, errors.As(err, &conversionErr))
}

func TestDecode_StreamAndWhile(t *testing.T) {
	doc, err := Decode([]byte(`
root:
  type: Container
  entries:
    - type: WhileArray
      name: bytes
      case: {until_byte: 0}
      sub_struct: {type: UInt8}
    - {type: UInt8, name: terminator}
    - type: StreamAdapter
      name: packed
      stream: lz4
      sub_struct: {type: Struct, entries: [{type: UInt16, name: a}]}
`), FormatYAML, nil)
	require.NoError(t, err)
	desc, err := doc.Sanitize(bdesc.Options{})
	require.NoError(t, err)

	root, err := bcodec.New(desc)
	require.NoError(t, err)
	items, ok := root.Block(0)
	require.True(t, ok)
	require.NoError(t, items.Append(5))
	require.NoError(t, items.Append(6))

	buf := bbuf.NewBytearray()
	_, err = bcodec.Write(root, buf, bcodec.WriteOptions{})
	require.NoError(t, err)

	again, err := bcodec.Read(desc, bbuf.NewBytes(buf.Bytes()), bcodec.ReadOptions{})
	require.NoError(t, err)
	items, _ = again.Block(0)
	assert.Equal(t, 2, items.Len())
	assert.Equal(t, int64(6), items.At(1))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(recordJSONC), 0o600))
	doc, err := ReadFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "record", doc.Root.Name)

	_, err = ReadFile(filepath.Join(dir, "record.txt"), nil)
	assert.Error(t, err)
}

func TestCache(t *testing.T) {
	cache := NewCache(bdesc.Options{})
	first, hit, err := cache.Load([]byte(recordYAML), FormatYAML)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := cache.Load([]byte(recordYAML), FormatYAML)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.Len())
}
