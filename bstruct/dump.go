package bstruct

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/iancoleman/orderedmap"
	"github.com/pkg/errors"
	"github.com/thanhnguyen2187/bindef/bstruct/bblock"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

var valueDecMode cbor.DecMode

func init() {
	var err error
	valueDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any{}),
	}.DecMode()
	if err != nil {
		panic("bstruct: building CBOR decoder: " + err.Error())
	}
}

// ParseFormat accepts a format name or a file name with a known extension.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(s)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	switch s {
	case "json", "jsonc":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cbor":
		return FormatCBOR, nil
	}
	return "", errors.Errorf("unknown value format %q", s)
}

// Dump renders the values of tag. JSON and YAML keep field order.
func Dump(tag *Tag, format Format) ([]byte, error) {
	values, err := tag.Values()
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatJSON:
		return json.MarshalIndent(values, "", "  ")
	case FormatYAML:
		node, err := yamlNode(values)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(node); err != nil {
			return nil, errors.Wrap(err, "encoding YAML")
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatCBOR:
		return cbor.Marshal(plain(values))
	}
	return nil, errors.Errorf("unknown value format %q", format)
}

// LoadValues decodes data and applies it to node. JSON input may carry
// comments.
func LoadValues(node *bblock.Block, data []byte, format Format) error {
	var decoded any
	switch format {
	case FormatJSON:
		om := orderedmap.New()
		if err := json.Unmarshal(jsonc.ToJSON(data), om); err != nil {
			return errors.Wrap(err, "decoding JSON values")
		}
		decoded = om
	case FormatYAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return errors.Wrap(err, "decoding YAML values")
		}
		v, err := fromYAML(&doc)
		if err != nil {
			return err
		}
		decoded = v
	case FormatCBOR:
		if err := valueDecMode.Unmarshal(data, &decoded); err != nil {
			return errors.Wrap(err, "decoding CBOR values")
		}
	default:
		return errors.Errorf("unknown value format %q", format)
	}
	om, ok := asOrderedMap(decoded, node)
	if !ok {
		return errors.Errorf("values must be a mapping, got %T", decoded)
	}
	return ApplyValues(node, om)
}

func yamlNode(v any) (*yaml.Node, error) {
	switch x := v.(type) {
	case *orderedmap.OrderedMap:
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range x.Keys() {
			item, _ := x.Get(k)
			value, err := yamlNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, value)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range x {
			value, err := yamlNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, value)
		}
		return n, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, errors.Wrapf(err, "encoding %T", v)
	}
	return n, nil
}

func fromYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		om := orderedmap.New()
		for i := 0; i+1 < len(n.Content); i += 2 {
			value, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			om.Set(n.Content[i].Value, value)
		}
		return om, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			value, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		return items, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, errors.Wrapf(err, "line %d", n.Line)
	}
	return v, nil
}

// plain drops ordering for encoders that only know Go maps.
func plain(v any) any {
	switch x := v.(type) {
	case *orderedmap.OrderedMap:
		m := make(map[string]any, len(x.Keys()))
		for _, k := range x.Keys() {
			item, _ := x.Get(k)
			m[k] = plain(item)
		}
		return m
	case []any:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = plain(item)
		}
		return items
	}
	return v
}
