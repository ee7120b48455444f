package steps

import (
	"bytes"
	"context"
	"fmt"

	"github.com/flarebyte/smelter/internal/engine"
	"github.com/flarebyte/smelter/internal/record"
	"gopkg.in/yaml.v3"
)

const frontMatterStep = "frontmatter"

var frontMatterFence = []byte("---")

// FrontMatter returns a step that lifts a leading YAML block delimited by
// "---" lines into the entry metadata and strips it from the contents.
// Keys reserved by the file envelope are ignored.
func FrontMatter() engine.Step {
	return namedStep{name: frontMatterStep, fn: func(ctx context.Context, files record.FileTree, _ *engine.Engine) error {
		for _, rel := range files.Keys() {
			if err := ctx.Err(); err != nil {
				return err
			}
			e := files[rel]
			attrs, body, ok, err := splitFrontMatter(e.Contents)
			if err != nil {
				return fmt.Errorf("%s: %s: %w", frontMatterStep, rel, err)
			}
			if !ok {
				continue
			}
			if e.Meta == nil {
				e.Meta = map[string]any{}
			}
			for k, v := range attrs {
				if record.IsReserved(k) {
					continue
				}
				e.Meta[k] = v
			}
			e.Contents = body
		}
		return nil
	}}
}

// splitFrontMatter returns the parsed attributes and the remaining body.
// ok is false when b has no front matter.
func splitFrontMatter(b []byte) (attrs map[string]any, body []byte, ok bool, err error) {
	first, rest, found := cutLine(b)
	if !found || !bytes.Equal(bytes.TrimRight(first, " \t\r"), frontMatterFence) {
		return nil, b, false, nil
	}
	var block []byte
	for {
		line, next, more := cutLine(rest)
		if bytes.Equal(bytes.TrimRight(line, " \t\r"), frontMatterFence) {
			body = next
			break
		}
		if !more {
			return nil, b, false, nil
		}
		block = append(block, line...)
		block = append(block, '\n')
		rest = next
	}
	var y any
	if err := yaml.Unmarshal(block, &y); err != nil {
		return nil, nil, false, fmt.Errorf("invalid front matter: %v", err)
	}
	switch m := y.(type) {
	case nil:
		return map[string]any{}, body, true, nil
	case map[string]any:
		return m, body, true, nil
	default:
		return nil, nil, false, fmt.Errorf("front matter must be a mapping")
	}
}

func cutLine(b []byte) (line, rest []byte, found bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return b, nil, false
	}
	return b[:i], b[i+1:], true
}
