package steps

import (
	"strings"

	"github.com/flarebyte/smelter/internal/record"
	"github.com/flarebyte/smelter/internal/stream"
)

// Rename returns a streaming stage replacing the from extension with to.
// Other files pass through untouched.
func Rename(from, to string) stream.Stage {
	return stream.Map("rename", func(f *record.File) *record.File {
		rel := f.Relative()
		if !strings.HasSuffix(rel, from) {
			return f
		}
		f.SetRelative(strings.TrimSuffix(rel, from) + to)
		return f
	})
}
