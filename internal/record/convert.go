package record

import (
	"bytes"
	"errors"
	"os"
)

var errNilRecord = errors.New("nil record")

// Root supplies the directories a batch engine resolves paths against.
type Root interface {
	// Join resolves parts against the engine directory; no parts yields
	// the directory itself.
	Join(parts ...string) string
	// Source returns the absolute source directory.
	Source() string
}

// ToBatch converts a streaming file into a batch entry.
func ToBatch(f *File) (*Entry, error) {
	if f == nil {
		return nil, &ConversionError{Field: "contents", Err: errNilRecord}
	}
	if !f.IsBuffer() {
		return nil, &UnbufferedContentError{Relative: f.Relative()}
	}
	e := &Entry{
		Contents: f.Contents,
		Meta:     copyExtra(f.Extra),
	}
	if e.Contents == nil {
		e.Contents = []byte{}
	}
	if f.Stat != nil {
		e.Mode = EncodeMode(f.Stat.Mode)
	}
	return e, nil
}

// ToStream converts the batch entry stored under rel into a streaming file.
// The file owns a copy of the entry contents. When root is nil both the
// working directory and the base default to the process working directory.
func ToStream(rel string, e *Entry, root Root) (*File, error) {
	if e == nil {
		return nil, &ConversionError{Path: rel, Field: "contents", Err: errNilRecord}
	}
	var cwd, base string
	if root != nil {
		cwd = root.Join()
		base = root.Source()
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, &ConversionError{Path: rel, Field: "path", Err: err}
		}
		cwd, base = wd, wd
	}
	f := &File{
		Cwd:      cwd,
		Base:     base,
		Path:     resolve(base, rel),
		Contents: bytes.Clone(e.Contents),
		Extra:    copyExtra(e.Meta),
	}
	if f.Contents == nil {
		f.Contents = []byte{}
	}
	if e.Mode != "" {
		m, err := DecodeMode(e.Mode)
		if err != nil {
			return nil, &ConversionError{Path: rel, Field: "mode", Err: err}
		}
		f.Stat = &Stat{Mode: m}
	}
	return f, nil
}
