package steps

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/flarebyte/smelter/internal/record"
	lua "github.com/yuin/gopher-lua"
)

func toLValue(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(x)
	case []byte:
		return lua.LString(string(x))
	case bool:
		if x {
			return lua.LTrue
		}
		return lua.LFalse
	case int:
		return lua.LNumber(float64(x))
	case int64:
		return lua.LNumber(float64(x))
	case uint32:
		return lua.LNumber(float64(x))
	case float64:
		return lua.LNumber(x)
	case time.Time:
		return lua.LString(x.Format(time.RFC3339))
	case map[string]any:
		tbl := L.NewTable()
		for k, v2 := range x {
			tbl.RawSetString(k, toLValue(L, v2))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for i, v2 := range x {
			tbl.RawSetInt(i+1, toLValue(L, v2))
		}
		return tbl
	case []string:
		tbl := L.NewTable()
		for i, v2 := range x {
			tbl.RawSetInt(i+1, lua.LString(v2))
		}
		return tbl
	default:
		return reflectToLValue(L, reflect.ValueOf(v))
	}
}

// reflectToLValue covers the remaining numeric, string keyed map and slice
// types. Anything else has no Lua form and becomes nil.
func reflectToLValue(L *lua.LState, rv reflect.Value) lua.LValue {
	switch rv.Kind() {
	case reflect.Bool:
		return lua.LBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return lua.LNumber(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	case reflect.String:
		return lua.LString(rv.String())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return lua.LNil
		}
		tbl := L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			tbl.RawSetString(iter.Key().String(), toLValue(L, iter.Value().Interface()))
		}
		return tbl
	case reflect.Slice, reflect.Array:
		tbl := L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			tbl.RawSetInt(i+1, toLValue(L, rv.Index(i).Interface()))
		}
		return tbl
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return lua.LNil
		}
		return reflectToLValue(L, rv.Elem())
	default:
		return lua.LNil
	}
}

func fromLValue(v lua.LValue) any {
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTBool:
		return lua.LVAsBool(v)
	case lua.LTNumber:
		return float64(v.(lua.LNumber))
	case lua.LTString:
		return v.String()
	case lua.LTTable:
		t := v.(*lua.LTable)
		// Sequential keys 1..n make an array, anything else an object.
		arr := []any{}
		isArray := true
		t.ForEach(func(k, val lua.LValue) {
			if isArray {
				if lk, ok := k.(lua.LNumber); ok && int(lk) == len(arr)+1 {
					arr = append(arr, fromLValue(val))
				} else {
					isArray = false
				}
			}
		})
		if isArray {
			return arr
		}
		obj := map[string]any{}
		t.ForEach(func(k, val lua.LValue) {
			obj[k.String()] = fromLValue(val)
		})
		return obj
	default:
		return nil
	}
}

// asObject converts v to a map, treating an empty table as an empty map.
func asObject(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case []any:
		if len(x) == 0 {
			return map[string]any{}, true
		}
	}
	return nil, false
}

// entryToLValue renders an entry as {contents=, mode=, meta=}.
func entryToLValue(L *lua.LState, e *record.Entry) *lua.LTable {
	tbl := L.NewTable()
	if e == nil {
		tbl.RawSetString("contents", lua.LString(""))
		tbl.RawSetString("meta", L.NewTable())
		return tbl
	}
	tbl.RawSetString("contents", lua.LString(string(e.Contents)))
	if e.Mode != "" {
		tbl.RawSetString("mode", lua.LString(e.Mode))
	}
	meta := L.NewTable()
	for _, k := range sortedMetaKeys(e.Meta) {
		meta.RawSetString(k, toLValue(L, e.Meta[k]))
	}
	tbl.RawSetString("meta", meta)
	return tbl
}

// entryFromValue builds an entry from a Lua table value.
func entryFromValue(key string, v any) (*record.Entry, error) {
	obj, ok := asObject(v)
	if !ok {
		return nil, fmt.Errorf("file %q must be a table", key)
	}
	e := &record.Entry{}
	switch c := obj["contents"].(type) {
	case nil:
		e.Contents = []byte{}
	case string:
		e.Contents = []byte(c)
	default:
		return nil, fmt.Errorf("file %q: contents must be a string", key)
	}
	switch m := obj["mode"].(type) {
	case nil:
	case string:
		e.Mode = m
	default:
		return nil, fmt.Errorf("file %q: mode must be a string", key)
	}
	if raw, present := obj["meta"]; present && raw != nil {
		meta, ok := asObject(raw)
		if !ok {
			return nil, fmt.Errorf("file %q: meta must be a table", key)
		}
		if len(meta) > 0 {
			e.Meta = meta
		}
	}
	return e, nil
}

// restoreMeta returns after with the original Go value put back for every
// key the script left as it found it. before is the Lua rendering of orig.
// Keys of orig that have no Lua form were never visible to the script and
// are carried over.
func restoreMeta(orig, before, after map[string]any) map[string]any {
	if len(orig) == 0 {
		return after
	}
	if after == nil {
		after = map[string]any{}
	}
	for k, ov := range orig {
		bv, seen := before[k]
		if !seen || bv == nil {
			if _, set := after[k]; !set {
				after[k] = ov
			}
			continue
		}
		if av, ok := after[k]; ok && reflect.DeepEqual(av, bv) {
			after[k] = ov
		}
	}
	return after
}

func sortedMetaKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
