// Package manifest renders the files a run produced.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/flarebyte/smelter/internal/record"
	"gopkg.in/yaml.v3"
)

const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Item is the manifest line for one file.
type Item struct {
	Path string         `json:"path"`
	Mode string         `json:"mode,omitempty"`
	Size int            `json:"size"`
	Meta map[string]any `json:"meta"`
}

// Items describes files sorted by relative path.
func Items(files []*record.File) []Item {
	items := make([]Item, 0, len(files))
	for _, f := range files {
		it := Item{Path: f.Relative(), Size: len(f.Contents), Meta: metaOf(f)}
		if f.Stat != nil {
			it.Mode = record.EncodeMode(f.Stat.Mode)
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items
}

// Render writes the manifest of files in format. YAML output is a single
// canonical document with sorted keys; JSON output is one object per line.
func Render(w io.Writer, files []*record.File, metadata map[string]any, format string) error {
	items := Items(files)
	switch format {
	case FormatYAML, "":
		b, err := Marshal(items, metadata)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		for _, it := range items {
			if err := enc.Encode(it); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// Marshal returns canonical YAML bytes for a manifest.
func Marshal(items []Item, metadata map[string]any) ([]byte, error) {
	list := &yaml.Node{Kind: yaml.SequenceNode}
	for _, it := range items {
		n := &yaml.Node{Kind: yaml.MappingNode}
		n.Content = append(n.Content, scalarNode("path"), scalarFrom(it.Path))
		if it.Mode != "" {
			n.Content = append(n.Content, scalarNode("mode"), scalarFrom(it.Mode))
		}
		n.Content = append(n.Content, scalarNode("size"), scalarFrom(it.Size))
		n.Content = append(n.Content, scalarNode("meta"), canonicalMapNode(it.Meta))
		list.Content = append(list.Content, n)
	}
	top := &yaml.Node{Kind: yaml.MappingNode}
	top.Content = append(top.Content, scalarNode("metadata"), canonicalMapNode(metadata))
	top.Content = append(top.Content, scalarNode("files"), list)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(top); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	out = append(out, '\n')
	return out, nil
}

func metaOf(f *record.File) map[string]any {
	meta := map[string]any{}
	for k, v := range f.Extra {
		if record.IsReserved(k) {
			continue
		}
		meta[k] = v
	}
	return meta
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func scalarFrom(v any) *yaml.Node {
	n := &yaml.Node{}
	_ = n.Encode(v)
	return n
}

func canonicalNode(v any) *yaml.Node {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case map[string]any:
		return canonicalMapNode(x)
	case map[any]any:
		m := map[string]any{}
		for k, vv := range x {
			if ks, ok := k.(string); ok {
				m[ks] = vv
			}
		}
		return canonicalMapNode(m)
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, it := range x {
			n.Content = append(n.Content, canonicalNode(it))
		}
		return n
	default:
		return scalarFrom(x)
	}
}

func canonicalMapNode(m map[string]any) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode}
	if len(m) == 0 {
		return n
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Content = append(n.Content, scalarNode(k), canonicalNode(m[k]))
	}
	return n
}
