// Package dsondef describes the DSON save file container: a fixed header,
// two tables of field metadata and a blob holding field names and data.
package dsondef

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/thanhnguyen2187/bindef/bstruct"
	"github.com/thanhnguyen2187/bindef/bstruct/bblock"
	"github.com/thanhnguyen2187/bindef/bstruct/bdesc"
	"github.com/thanhnguyen2187/bindef/bstruct/bfield"
)

const (
	HeaderSize     = 64
	Meta1EntrySize = 16
	Meta2EntrySize = 12
)

var MagicNumber = []byte{0x01, 0xB1, 0x00, 0x00}

var (
	descOnce sync.Once
	desc     *bdesc.Descriptor
)

// Schema is the raw descriptor, for callers that want to extend it.
func Schema() *bdesc.Raw {
	return bdesc.Container("dson",
		bdesc.Struct("header",
			bdesc.BytesRaw("magic_number", bdesc.Size(4), bdesc.Default(MagicNumber)),
			bdesc.BytesRaw("revision", bdesc.Size(4)),
			bdesc.SInt32("header_length", bdesc.Default(HeaderSize)),
			bdesc.Pad(4),
			bdesc.SInt32("meta_1_size"),
			bdesc.SInt32("num_meta_1_entries"),
			bdesc.SInt32("meta_1_offset"),
			bdesc.Pad(16),
			bdesc.SInt32("num_meta_2_entries"),
			bdesc.SInt32("meta_2_offset"),
			bdesc.Pad(4),
			bdesc.SInt32("data_length"),
			bdesc.SInt32("data_offset"),
		),
		bdesc.Array("meta_1_block",
			bdesc.Struct("meta_1_entry",
				bdesc.SInt32("parent_index"),
				bdesc.SInt32("meta_2_entry_index"),
				bdesc.SInt32("num_direct_children"),
				bdesc.SInt32("num_all_children"),
			),
			bdesc.Size(".header.num_meta_1_entries"),
			bdesc.Pointer(".header.meta_1_offset"),
		),
		bdesc.Array("meta_2_block",
			bdesc.Struct("meta_2_entry",
				bdesc.SInt32("name_hash"),
				bdesc.SInt32("offset"),
				//   0 | 0000 0000 0000 0000 0000 | 0 0000 0000 | 0 | 1
				//   ^   meta 1 entry index         name length    ^   is object
				//   |   when an object             including \0   |
				//   unknown, sometimes set                         unknown
				bdesc.BitStruct("field_info",
					bdesc.Bit("is_object"),
					bdesc.Bit("unknown_1"),
					bdesc.BitUInt("field_name_length", bdesc.Size(9)),
					bdesc.BitUInt("meta_1_entry_index", bdesc.Size(20)),
					bdesc.Bit("unknown_2"),
				),
			),
			bdesc.Size(".header.num_meta_2_entries"),
			bdesc.Pointer(".header.meta_2_offset"),
		),
		bdesc.BytesRaw("data",
			bdesc.Size(".header.data_length"),
			bdesc.Pointer(".header.data_offset"),
		),
	)
}

// Descriptor is the sanitized schema. It is built once.
func Descriptor() *bdesc.Descriptor {
	descOnce.Do(func() {
		desc = bdesc.MustSanitize(Schema(), bdesc.Options{Endian: bfield.Little})
	})
	return desc
}

func IsValidMagicNumber(bs []byte) bool {
	return len(bs) >= len(MagicNumber) && bytes.Equal(bs[:len(MagicNumber)], MagicNumber)
}

// HashName is the hash stored in name_hash for a field name.
func HashName(s string) int32 {
	return lo.Reduce(
		[]byte(s),
		func(result int32, b byte, _ int) int32 {
			return result*53 + int32(b)
		},
		0,
	)
}

type Field struct {
	Name            string
	Hash            int32
	Offset          int
	IsObject        bool
	Meta1EntryIndex int
}

// Fields decodes the meta 2 table of a parsed file, reading each field
// name out of the data blob.
func Fields(tag *bstruct.Tag) ([]Field, error) {
	magic, err := tag.Get("header.magic_number")
	if err != nil {
		return nil, err
	}
	if bs, _ := magic.([]byte); !IsValidMagicNumber(bs) {
		return nil, errors.Errorf(`invalid magic number: expected "%v", got "%v"`, MagicNumber, magic)
	}
	blob, err := tag.Get("data")
	if err != nil {
		return nil, err
	}
	data, _ := blob.([]byte)
	value, err := tag.Get("meta_2_block")
	if err != nil {
		return nil, err
	}
	entries, ok := value.(*bblock.Block)
	if !ok {
		return nil, errors.New("meta_2_block is not a block")
	}

	fields := make([]Field, 0, entries.Len())
	for i := 0; i < entries.Len(); i++ {
		entry, _ := entries.Block(i)
		f, err := decodeField(entry, data)
		if err != nil {
			return nil, errors.Wrapf(err, "meta 2 entry %d", i)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func decodeField(entry *bblock.Block, data []byte) (Field, error) {
	ints := map[string]int64{}
	for _, path := range []string{
		".name_hash",
		".offset",
		".field_info.is_object",
		".field_info.field_name_length",
		".field_info.meta_1_entry_index",
	} {
		value, err := entry.Neighbor(path)
		if err != nil {
			return Field{}, err
		}
		n, err := bfield.ToInt64(value)
		if err != nil {
			return Field{}, err
		}
		ints[path] = n
	}

	offset := int(ints[".offset"])
	length := int(ints[".field_info.field_name_length"])
	if length < 1 || offset < 0 || offset+length > len(data) {
		return Field{}, errors.Errorf("name at %d with length %d is outside of %d data bytes", offset, length, len(data))
	}
	return Field{
		Name:            string(data[offset : offset+length-1]),
		Hash:            int32(ints[".name_hash"]),
		Offset:          offset,
		IsObject:        ints[".field_info.is_object"] == 1,
		Meta1EntryIndex: int(ints[".field_info.meta_1_entry_index"]),
	}, nil
}

// FieldNames lists the field names of a parsed file in storage order.
func FieldNames(tag *bstruct.Tag) ([]string, error) {
	fields, err := Fields(tag)
	if err != nil {
		return nil, err
	}
	return lo.Map(fields, func(f Field, _ int) string { return f.Name }), nil
}
