package steps

import (
	"context"
	"fmt"
	"reflect"

	"github.com/flarebyte/smelter/internal/engine"
	"github.com/flarebyte/smelter/internal/record"
	lua "github.com/yuin/gopher-lua"
)

const luaStep = "lua"

// Lua returns a step running code once over the whole tree.
//
// The script sees two globals: files, a table of path to
// {contents, mode, meta}, and metadata, the engine metadata. Returning a
// table replaces the tree with it, so paths it leaves out are deleted.
// Returning nothing keeps whatever the script left in files. The metadata
// global is written back to the engine afterwards. Entries and meta values
// the script leaves as they were keep their original Go values.
func Lua(code string, opts LuaOptions) engine.Step {
	return namedStep{name: luaStep, fn: func(ctx context.Context, files record.FileTree, e *engine.Engine) error {
		var meta map[string]any
		if e != nil {
			meta = e.Metadata()
		}
		seen := make(map[string]luaSnapshot, len(files))
		var metaBefore map[string]any
		setup := func(L *lua.LState) {
			tbl := L.NewTable()
			for _, rel := range files.Keys() {
				entryTbl := entryToLValue(L, files[rel])
				seen[rel] = luaSnapshot{entry: files[rel], value: fromLValue(entryTbl)}
				tbl.RawSetString(rel, entryTbl)
			}
			L.SetGlobal("files", tbl)
			metaTbl := toLValue(L, metaOrEmpty(meta))
			metaBefore, _ = asObject(fromLValue(metaTbl))
			L.SetGlobal("metadata", metaTbl)
		}
		var next record.FileTree
		var nextMeta map[string]any
		after := func(L *lua.LState, ret lua.LValue) error {
			if ret == lua.LNil {
				ret = L.GetGlobal("files")
			}
			tree, err := treeFromValue(fromLValue(ret), seen)
			if err != nil {
				return err
			}
			next = tree
			if m, ok := asObject(fromLValue(L.GetGlobal("metadata"))); ok {
				nextMeta = restoreMeta(meta, metaBefore, m)
			}
			return nil
		}
		if err := runSandboxed(ctx, luaStep, "", opts, code, setup, after); err != nil {
			return fmt.Errorf("%s: %w", luaStep, err)
		}

		for rel := range files {
			if _, ok := next[rel]; !ok {
				delete(files, rel)
			}
		}
		for rel, entry := range next {
			files[rel] = entry
		}
		if e != nil && nextMeta != nil {
			e.SetMetadata(nextMeta)
		}
		return nil
	}}
}

// luaSnapshot is an entry as the script first saw it.
type luaSnapshot struct {
	entry *record.Entry
	value any
}

// treeFromValue builds the tree a script returned. Entries identical to
// their snapshot keep the original *record.Entry; changed entries keep the
// original values of the meta keys the script did not touch.
func treeFromValue(v any, seen map[string]luaSnapshot) (record.FileTree, error) {
	obj, ok := asObject(v)
	if !ok {
		return nil, fmt.Errorf("script must return a table of files keyed by path")
	}
	tree := make(record.FileTree, len(obj))
	for rel, raw := range obj {
		if rel == "" {
			return nil, fmt.Errorf("file path must not be empty")
		}
		snap, known := seen[rel]
		if known && reflect.DeepEqual(raw, snap.value) {
			tree[rel] = snap.entry
			continue
		}
		entry, err := entryFromValue(rel, raw)
		if err != nil {
			return nil, err
		}
		if known && snap.entry != nil {
			before, _ := asObject(snap.value)
			metaBefore, _ := asObject(before["meta"])
			entry.Meta = restoreMeta(snap.entry.Meta, metaBefore, entry.Meta)
			if len(entry.Meta) == 0 {
				entry.Meta = nil
			}
		}
		tree[rel] = entry
	}
	return tree, nil
}

func metaOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
