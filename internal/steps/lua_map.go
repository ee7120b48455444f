package steps

import (
	"context"
	"fmt"

	"github.com/flarebyte/smelter/internal/record"
	"github.com/flarebyte/smelter/internal/stream"
	lua "github.com/yuin/gopher-lua"
)

const luaMapStage = "lua-map"

// LuaMap returns a streaming stage running code once per file with the
// globals path, contents and meta. The script returns nil to pass the file
// through, false to drop it, or a table whose contents, path and meta fields
// override the file's. Files are processed by opts.Workers goroutines and
// leave in arrival order.
func LuaMap(code string, opts LuaOptions) stream.Stage {
	return stream.ParallelMap(luaMapStage, opts.Workers, func(ctx context.Context, f *record.File) (*record.File, bool, error) {
		rel := f.Relative()
		res, keep, err := luaMapFile(ctx, code, opts, f)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %s: %w", luaMapStage, rel, err)
		}
		return res, keep, nil
	})
}

func luaMapFile(ctx context.Context, code string, opts LuaOptions, f *record.File) (*record.File, bool, error) {
	rel := f.Relative()
	keep := true
	var metaBefore map[string]any
	setup := func(L *lua.LState) {
		L.SetGlobal("path", lua.LString(rel))
		L.SetGlobal("contents", lua.LString(string(f.Contents)))
		meta := L.NewTable()
		for _, k := range sortedMetaKeys(f.Extra) {
			meta.RawSetString(k, toLValue(L, f.Extra[k]))
		}
		metaBefore, _ = asObject(fromLValue(meta))
		L.SetGlobal("meta", meta)
	}
	after := func(_ *lua.LState, ret lua.LValue) error {
		switch ret.Type() {
		case lua.LTNil:
			return nil
		case lua.LTBool:
			keep = lua.LVAsBool(ret)
			return nil
		case lua.LTTable:
		default:
			return fmt.Errorf("script must return nil, a boolean or a table, got %s", ret.Type())
		}
		obj, ok := asObject(fromLValue(ret))
		if !ok {
			return fmt.Errorf("script must return a table with named fields")
		}
		return applyLuaResult(f, obj, metaBefore)
	}
	if err := runSandboxed(ctx, luaMapStage, rel, opts, code, setup, after); err != nil {
		return nil, false, err
	}
	return f, keep, nil
}

// applyLuaResult writes a returned table onto f. before is the Lua rendering
// of f.Extra, used to keep the original values of untouched meta keys.
func applyLuaResult(f *record.File, obj, before map[string]any) error {
	if raw, ok := obj["contents"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("contents must be a string")
		}
		f.Contents = []byte(s)
		f.Reader = nil
	}
	if raw, ok := obj["path"]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok || s == "" {
			return fmt.Errorf("path must be a non-empty string")
		}
		f.SetRelative(s)
	}
	if raw, ok := obj["meta"]; ok && raw != nil {
		meta, ok := asObject(raw)
		if !ok {
			return fmt.Errorf("meta must be a table")
		}
		extra := make(map[string]any, len(meta))
		for k, v := range meta {
			if record.IsReserved(k) {
				continue
			}
			extra[k] = v
		}
		f.Extra = restoreMeta(f.Extra, before, extra)
	}
	return nil
}
