package steps

import (
	"context"
	"testing"
	"time"

	"github.com/flarebyte/smelter/internal/engine"
	"github.com/flarebyte/smelter/internal/record"
	"github.com/flarebyte/smelter/internal/stream"
	"github.com/stretchr/testify/require"
)

func TestLua_ReturnedTableReplacesTree(t *testing.T) {
	tree := record.FileTree{
		"a.md": {Contents: []byte("a"), Mode: "0644", Meta: map[string]any{"title": "A"}},
		"b.md": {Contents: []byte("b")},
	}
	code := `
local out = {}
for path, f in pairs(files) do
  if path ~= "b.md" then
    out[path] = { contents = string.upper(f.contents), mode = f.mode, meta = f.meta }
  end
end
out["index.md"] = { contents = "index" }
return out
`
	_, err := apply(t, Lua(code, LuaOptions{}), tree)
	require.NoError(t, err)
	require.Equal(t, []string{"a.md", "index.md"}, tree.Keys())
	require.Equal(t, "A", string(tree["a.md"].Contents))
	require.Equal(t, "0644", tree["a.md"].Mode)
	require.Equal(t, "A", tree["a.md"].Meta["title"])
	require.Equal(t, "index", string(tree["index.md"].Contents))
	require.Empty(t, tree["index.md"].Mode)
}

func TestLua_NilKeepsMutatedFiles(t *testing.T) {
	tree := record.FileTree{"a.md": {Contents: []byte("a")}, "b.md": {Contents: []byte("b")}}
	_, err := apply(t, Lua(`files["b.md"] = nil; files["a.md"].contents = "changed"`, LuaOptions{}), tree)
	require.NoError(t, err)
	require.Equal(t, []string{"a.md"}, tree.Keys())
	require.Equal(t, "changed", string(tree["a.md"].Contents))
}

type pinned struct{ ID int }

func TestLua_NilReturnPreservesMeta(t *testing.T) {
	entry := &record.Entry{
		Contents: []byte("a"),
		Mode:     "0644",
		Meta: map[string]any{
			"n": 3,
			"m": map[string]string{"k": "v"},
			"u": uint64(7),
			"p": pinned{ID: 1},
		},
	}
	tree := record.FileTree{"a.md": entry}
	_, err := apply(t, Lua(`return nil`, LuaOptions{}), tree)
	require.NoError(t, err)
	require.Same(t, entry, tree["a.md"])
	require.Equal(t, map[string]any{
		"n": 3,
		"m": map[string]string{"k": "v"},
		"u": uint64(7),
		"p": pinned{ID: 1},
	}, tree["a.md"].Meta)
}

func TestLua_UntouchedMetaKeysKeepTypes(t *testing.T) {
	tree := record.FileTree{"a.md": {
		Contents: []byte("a"),
		Meta: map[string]any{
			"n":     3,
			"tags":  []string{"x"},
			"p":     pinned{ID: 1},
			"title": "old",
		},
	}}
	_, err := apply(t, Lua(`files["a.md"].meta.title = "new"`, LuaOptions{}), tree)
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"n":     3,
		"tags":  []string{"x"},
		"p":     pinned{ID: 1},
		"title": "new",
	}, tree["a.md"].Meta)
}

func TestLua_SeesExtendedMetaTypes(t *testing.T) {
	tree := record.FileTree{"a.md": {Meta: map[string]any{
		"m":    map[string]string{"k": "v"},
		"u":    uint64(7),
		"nums": []int{4, 5},
	}}}
	code := `
local m = files["a.md"].meta
return { ["a.md"] = { contents = m.m.k .. m.u .. m.nums[2] } }
`
	_, err := apply(t, Lua(code, LuaOptions{}), tree)
	require.NoError(t, err)
	require.Equal(t, "v75", string(tree["a.md"].Contents))
}

func TestLua_EngineMetadataKeepsTypes(t *testing.T) {
	e := engine.New(t.TempDir()).SetMetadata(map[string]any{"year": int64(2024), "site": "demo"})
	require.NoError(t, Lua(`metadata.extra = 1`, LuaOptions{}).Apply(context.Background(), record.FileTree{}, e))
	require.Equal(t, map[string]any{"year": int64(2024), "site": "demo", "extra": float64(1)}, e.Metadata())
}

func TestLua_MetadataWrittenBack(t *testing.T) {
	e := engine.New(t.TempDir()).SetMetadata(map[string]any{"site": "demo"})
	tree := record.FileTree{"a.md": {}, "b.md": {}}
	code := `
local n = 0
for _ in pairs(files) do n = n + 1 end
metadata.count = n
metadata.title = metadata.site .. "!"
`
	require.NoError(t, Lua(code, LuaOptions{}).Apply(context.Background(), tree, e))
	require.Equal(t, float64(2), e.Metadata()["count"])
	require.Equal(t, "demo!", e.Metadata()["title"])
}

func TestLua_Errors(t *testing.T) {
	cases := map[string]string{
		"syntax":       `return {`,
		"runtime":      `error("nope")`,
		"not a table":  `return 42`,
		"bad contents": `return { ["a.md"] = { contents = {} } }`,
		"no io":        `io.write("x")`,
	}
	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			tree := record.FileTree{"a.md": {Contents: []byte("a")}}
			_, err := apply(t, Lua(code, LuaOptions{}), tree)
			require.Error(t, err)
			require.Contains(t, err.Error(), "lua: ")
			require.Equal(t, "a", string(tree["a.md"].Contents))
		})
	}
}

func TestLua_Timeout(t *testing.T) {
	tree := record.FileTree{"a.md": {}}
	_, err := apply(t, Lua(`while true do end`, LuaOptions{Timeout: 50 * time.Millisecond}), tree)
	require.ErrorIs(t, err, errSandboxTimeout)
}

func TestLua_DeterministicRandom(t *testing.T) {
	code := `return { ["r"] = { contents = tostring(math.random(1, 1000000)) } }`
	first := record.FileTree{}
	second := record.FileTree{}
	_, err := apply(t, Lua(code, LuaOptions{}), first)
	require.NoError(t, err)
	_, err = apply(t, Lua(code, LuaOptions{}), second)
	require.NoError(t, err)
	require.Equal(t, first["r"].Contents, second["r"].Contents)
}

func TestLuaMap_UpdatesDropsAndPasses(t *testing.T) {
	code := `
if path == "drop.md" then return false end
if path == "same.md" then return nil end
return { contents = contents .. "!", path = path .. ".out", meta = { seen = true, path = "ignored" } }
`
	keep := srcFile("a.md", "a")
	keep.Extra = map[string]any{"old": 1}
	out := drain(t, LuaMap(code, LuaOptions{}), keep, srcFile("drop.md", "d"), srcFile("same.md", "s"))

	require.Len(t, out, 2)
	require.Equal(t, "a.md.out", out[0].Relative())
	require.Equal(t, "a!", string(out[0].Contents))
	require.Equal(t, map[string]any{"seen": true}, out[0].Extra)
	require.Equal(t, "same.md", out[1].Relative())
	require.Equal(t, "s", string(out[1].Contents))
}

func TestLuaMap_UntouchedMetaKeysKeepTypes(t *testing.T) {
	f := srcFile("a.md", "a")
	f.Extra = map[string]any{"n": 3, "u": uint64(9), "title": "old"}
	out := drain(t, LuaMap(`meta.title = "new"; return { meta = meta }`, LuaOptions{}), f)
	require.Equal(t, map[string]any{"n": 3, "u": uint64(9), "title": "new"}, out[0].Extra)
}

func TestLuaMap_SeesMeta(t *testing.T) {
	f := srcFile("a.md", "")
	f.Extra = map[string]any{"title": "Hi"}
	out := drain(t, LuaMap(`return { contents = meta.title }`, LuaOptions{}), f)
	require.Equal(t, "Hi", string(out[0].Contents))
}

func TestLuaMap_ErrorNamesFile(t *testing.T) {
	_, err := stream.Drain(context.Background(), LuaMap(`return 1`, LuaOptions{}), []*record.File{srcFile("x.md", "")})
	require.ErrorContains(t, err, "lua-map: x.md")
}
