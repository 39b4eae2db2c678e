package dsondef

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/thanhnguyen2187/bindef/bstruct"
)

func le32(vs ...int32) []byte {
	bs := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		bs = binary.LittleEndian.AppendUint32(bs, uint32(v))
	}
	return bs
}

// sampleFile holds an object "base_root" with a single int field "a".
func sampleFile() []byte {
	var bs []byte
	bs = append(bs, MagicNumber...)
	bs = append(bs, 0xD0, 0x0B, 0x00, 0x00)
	bs = append(bs, le32(HeaderSize, 0, Meta1EntrySize, 1, 64, 0, 0, 0, 0, 2, 80, 0, 16, 104)...)
	// meta 1
	bs = append(bs, le32(-1, 0, 1, 1)...)
	// meta 2
	bs = append(bs, le32(HashName("base_root"), 0, 1|10<<2)...)
	bs = append(bs, le32(HashName("a"), 10, 2<<2)...)
	// data
	bs = append(bs, "base_root\x00a\x00"...)
	bs = append(bs, le32(7)...)
	return bs
}

type DSONTestSuite struct {
	Data []byte
	Tag  *bstruct.Tag
	R    *require.Assertions
	suite.Suite
}

func (suite *DSONTestSuite) SetupTest() {
	suite.R = suite.Require()
	suite.Data = sampleFile()
	suite.R.Len(suite.Data, 120)
	tag, err := bstruct.ParseBytes(Descriptor(), suite.Data)
	suite.R.NoError(err)
	suite.Tag = tag
}

func (suite *DSONTestSuite) TestHeader() {
	for path, want := range map[string]int64{
		"header.header_length":      64,
		"header.num_meta_1_entries": 1,
		"header.meta_2_offset":      80,
		"header.data_length":        16,
	} {
		value, err := suite.Tag.Get(path)
		suite.R.NoError(err)
		suite.R.Equal(want, value, path)
	}
}

func (suite *DSONTestSuite) TestFields() {
	fields, err := Fields(suite.Tag)
	suite.R.NoError(err)
	suite.R.Len(fields, 2)
	suite.R.Equal(Field{
		Name:     "base_root",
		Hash:     HashName("base_root"),
		IsObject: true,
	}, fields[0])
	suite.R.Equal(10, fields[1].Offset)
	suite.R.False(fields[1].IsObject)

	names, err := FieldNames(suite.Tag)
	suite.R.NoError(err)
	suite.R.Equal([]string{"base_root", "a"}, names)
}

func (suite *DSONTestSuite) TestRoundTrip() {
	data, err := suite.Tag.Serialize()
	suite.R.NoError(err)
	suite.R.Equal(suite.Data, data)
}

func (suite *DSONTestSuite) TestInvalidMagicNumber() {
	suite.R.NoError(suite.Tag.Set("header.magic_number", []byte{1, 2, 3, 4}))
	_, err := Fields(suite.Tag)
	suite.R.ErrorContains(err, "invalid magic number")
}

func TestDSONTestSuite(t *testing.T) {
	suite.Run(t, new(DSONTestSuite))
}

func TestHashName(t *testing.T) {
	expectedValues := map[string]int32{
		"":              0,
		"crusader":      1181166609,
		"plague_doctor": -586237712,
	}
	for s, i := range expectedValues {
		assert.Equal(t, i, HashName(s))
	}
}

func TestIsValidMagicNumber(t *testing.T) {
	assert.True(t, IsValidMagicNumber(sampleFile()))
	assert.False(t, IsValidMagicNumber([]byte{0x01, 0xB1}))
	assert.False(t, IsValidMagicNumber([]byte("JSON")))
}
