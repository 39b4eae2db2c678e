package bblock

import (
	"strconv"
	"strings"
)

// Neighbor resolves path against b. A path starting with "." is relative
// to b and each further leading "." climbs one level; any other path
// starts at the root. Named segments select children by name, numeric
// segments select by index.
func (b *Block) Neighbor(path string) (any, error) {
	parent, segment, err := b.walkTo(path)
	if err != nil {
		return nil, err
	}
	if segment == "" {
		return parent, nil
	}
	i, err := parent.segmentIndex(segment, path, b)
	if err != nil {
		return nil, err
	}
	value := parent.At(i)
	if value == nil {
		return nil, b.pathErr(segment, path)
	}
	return value, nil
}

// SetNeighbor stores value at the field path resolves to.
func (b *Block) SetNeighbor(path string, value any) error {
	parent, segment, err := b.walkTo(path)
	if err != nil {
		return err
	}
	if segment == "" {
		return b.pathErr(path, path)
	}
	i, err := parent.segmentIndex(segment, path, b)
	if err != nil {
		return err
	}
	return parent.SetAt(i, value)
}

func (b *Block) pathErr(segment string, path string) error {
	return &PathError{Start: b.desc.Name(), Field: segment, Path: path}
}

// walkTo follows every segment but the last, returning the block that
// holds the last one.
func (b *Block) walkTo(path string) (*Block, string, error) {
	segments := strings.Split(path, ".")
	cur := b.Root()
	if segments[0] == "" && len(segments) > 1 {
		cur = b
		segments = segments[1:]
		for len(segments) > 1 && segments[0] == "" {
			if cur.parent == nil {
				return nil, "", b.pathErr("..", path)
			}
			cur = cur.parent
			segments = segments[1:]
		}
	}
	last := len(segments) - 1
	for _, segment := range segments[:last] {
		i, err := cur.segmentIndex(segment, path, b)
		if err != nil {
			return nil, "", err
		}
		next, ok := cur.At(i).(*Block)
		if !ok {
			return nil, "", b.pathErr(segment, path)
		}
		cur = next
	}
	return cur, segments[last], nil
}

func (b *Block) segmentIndex(segment string, path string, start *Block) (int, error) {
	if segment == "" {
		return 0, start.pathErr(segment, path)
	}
	if i, err := strconv.Atoi(segment); err == nil {
		if b.checkIndex(i) != nil {
			return 0, start.pathErr(segment, path)
		}
		return i, nil
	}
	i, ok := b.indexOf(segment)
	if !ok {
		return 0, start.pathErr(segment, path)
	}
	return i, nil
}
