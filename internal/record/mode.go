package record

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
)

const permMask = 0o7777

var errModeFormat = errors.New("expected 1 to 4 octal digits")

// UnixBits returns the low 12 permission bits of m in their unix layout.
func UnixBits(m fs.FileMode) uint32 {
	bits := uint32(m.Perm())
	if m&fs.ModeSetuid != 0 {
		bits |= 0o4000
	}
	if m&fs.ModeSetgid != 0 {
		bits |= 0o2000
	}
	if m&fs.ModeSticky != 0 {
		bits |= 0o1000
	}
	return bits
}

// FileModeFromUnix converts unix permission bits to an fs.FileMode.
// File type bits are ignored.
func FileModeFromUnix(bits uint32) fs.FileMode {
	m := fs.FileMode(bits & 0o777)
	if bits&0o4000 != 0 {
		m |= fs.ModeSetuid
	}
	if bits&0o2000 != 0 {
		m |= fs.ModeSetgid
	}
	if bits&0o1000 != 0 {
		m |= fs.ModeSticky
	}
	return m
}

// EncodeMode renders the permission bits of m as a 4 digit octal string.
func EncodeMode(m fs.FileMode) string {
	return fmt.Sprintf("%04o", UnixBits(m)&permMask)
}

// DecodeMode parses an octal mode string produced by EncodeMode.
func DecodeMode(s string) (fs.FileMode, error) {
	if len(s) == 0 || len(s) > 4 {
		return 0, errModeFormat
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, errModeFormat
	}
	return FileModeFromUnix(uint32(n)), nil
}
