package record

import (
	"io"
	"io/fs"
	"path/filepath"
	"time"
)

// Stat is the filesystem metadata carried by a File.
// It is a value type so copies never alias each other.
type Stat struct {
	Mode    fs.FileMode
	Size    int64
	ModTime time.Time
}

// File is a single file flowing through a streaming pipeline.
//
// Contents holds the materialized bytes. A non-nil Reader means the content
// is still a live stream and the file cannot enter the batch model.
// Extra holds every piece of user metadata attached to the file.
type File struct {
	Cwd      string
	Base     string
	Path     string
	Contents []byte
	Reader   io.Reader
	Stat     *Stat
	Dir      bool
	Extra    map[string]any
}

// IsBuffer reports whether the file content is fully materialized.
func (f *File) IsBuffer() bool {
	return f != nil && !f.Dir && f.Reader == nil
}

// IsStream reports whether the file content is a live reader.
func (f *File) IsStream() bool {
	return f != nil && f.Reader != nil
}

// IsDirectory reports whether the file is a directory marker.
func (f *File) IsDirectory() bool {
	return f != nil && f.Dir
}

// Relative returns the slash separated path of the file under Base.
func (f *File) Relative() string {
	rel, err := filepath.Rel(f.Base, f.Path)
	if err != nil {
		return filepath.ToSlash(f.Path)
	}
	return filepath.ToSlash(rel)
}

// SetRelative moves the file to rel under its current Base.
func (f *File) SetRelative(rel string) {
	f.Path = resolve(f.Base, rel)
}

// Clone returns a copy that shares no mutable state with f except the
// values held in Extra.
func (f *File) Clone() *File {
	out := *f
	if f.Contents != nil {
		out.Contents = append([]byte(nil), f.Contents...)
	}
	if f.Stat != nil {
		st := *f.Stat
		out.Stat = &st
	}
	out.Extra = copyExtra(f.Extra)
	return &out
}

func resolve(base, rel string) string {
	p := filepath.FromSlash(rel)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// copyExtra copies the non reserved keys of src into a new map.
// Values are shared, not deep-cloned.
func copyExtra(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		if IsReserved(k) {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
