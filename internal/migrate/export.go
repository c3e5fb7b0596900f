package migrate

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/loveeagles/planner/internal/docstore"
)

// Export formats.
const (
	FormatJSONL = "jsonl"
	FormatYAML  = "yaml"
	FormatTOML  = "toml"
)

// Formats lists the accepted export formats.
var Formats = []string{FormatJSONL, FormatYAML, FormatTOML}

// ParseFormat normalizes a format name. "yml" is accepted for YAML.
func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case FormatJSONL, FormatYAML, FormatTOML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want one of %s)", s, strings.Join(Formats, ", "))
	}
}

// document is the YAML/TOML envelope of one export.
type document struct {
	Collection string           `yaml:"collection" toml:"collection"`
	Documents  []map[string]any `yaml:"documents" toml:"documents"`
}

// Export writes every document under path to w in format.
func Export(ctx context.Context, store docstore.Store, path docstore.Path, format string, w io.Writer) (int, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return 0, err
	}
	recs, err := store.List(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", path, err)
	}

	if format == FormatJSONL {
		return len(recs), EncodeJSONL(w, recs)
	}

	doc := document{Collection: path.String(), Documents: make([]map[string]any, len(recs))}
	for i, rec := range recs {
		doc.Documents[i] = dropNulls(rec)
	}
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return 0, fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return 0, fmt.Errorf("failed to encode yaml: %w", err)
		}
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return 0, fmt.Errorf("failed to encode toml: %w", err)
		}
	}
	return len(recs), nil
}

// dropNulls copies m without null values, which TOML cannot represent.
func dropNulls(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			continue
		case map[string]any:
			out[k] = dropNulls(t)
		case []any:
			out[k] = dropNullItems(t)
		default:
			out[k] = v
		}
	}
	return out
}

func dropNullItems(items []any) []any {
	out := make([]any, 0, len(items))
	for _, v := range items {
		switch t := v.(type) {
		case nil:
			continue
		case map[string]any:
			out = append(out, dropNulls(t))
		default:
			out = append(out, v)
		}
	}
	return out
}
