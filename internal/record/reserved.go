package record

import "sort"

// ReservedVersion identifies the revision of the envelope schema below.
const ReservedVersion = 1

// reserved lists the envelope fields owned by the conversion layer plus the
// structural surface of File. None of them is ever treated as user metadata.
var reserved = map[string]struct{}{
	"path":      {},
	"cwd":       {},
	"base":      {},
	"contents":  {},
	"_contents": {},
	"mode":      {},
	"stat":      {},

	"relative":    {},
	"dirname":     {},
	"basename":    {},
	"stem":        {},
	"extname":     {},
	"history":     {},
	"isBuffer":    {},
	"isStream":    {},
	"isDirectory": {},
	"isNull":      {},
	"clone":       {},
}

// IsReserved reports whether name belongs to the envelope schema.
func IsReserved(name string) bool {
	_, ok := reserved[name]
	return ok
}

// ReservedNames returns the reserved names in sorted order.
func ReservedNames() []string {
	out := make([]string, 0, len(reserved))
	for k := range reserved {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
