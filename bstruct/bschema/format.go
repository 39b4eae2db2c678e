// Package bschema loads descriptors written in a loosely typed
// interchange format. The same document shape is accepted as YAML,
// JSON with comments, or CBOR.
package bschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatYAML  Format = "yaml"
	FormatJSONC Format = "jsonc"
	FormatCBOR  Format = "cbor"
)

var (
	// canonical is Core Deterministic Encoding: sorted map keys and the
	// smallest integer encodings, so equal values give equal bytes.
	canonical cbor.EncMode
	decMode   cbor.DecMode
)

func init() {
	var err error
	canonical, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("bschema: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("bschema: CBOR decoder initialization failed: " + err.Error())
	}
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json", ".jsonc":
		return FormatJSONC, nil
	case ".cbor":
		return FormatCBOR, nil
	}
	return "", errors.Errorf("cannot tell the schema format of %q", path)
}

// decodeTree decodes data into plain maps, slices and scalars. Map keys
// become strings and integers become int64.
func decodeTree(data []byte, format Format) (any, error) {
	var tree any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, errors.Wrap(err, "parsing YAML")
		}
	case FormatJSONC:
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.UseNumber()
		if err := decoder.Decode(&tree); err != nil {
			return nil, errors.Wrap(err, "parsing JSON")
		}
	case FormatCBOR:
		if err := decMode.Unmarshal(data, &tree); err != nil {
			return nil, errors.Wrap(err, "parsing CBOR")
		}
	default:
		return nil, errors.Errorf("unknown format %q", format)
	}
	return normalize(tree), nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalize(item)
		}
		return out
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case int:
		return int64(x)
	case uint64:
		if x <= 1<<63-1 {
			return int64(x)
		}
	}
	return v
}
