package steps

import (
	"context"
	"errors"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const (
	defaultLuaTimeout       = 2 * time.Second
	sandboxTimeoutViolation = "sandbox timeout"
)

// LuaOptions tunes the Lua sandbox.
type LuaOptions struct {
	// Timeout bounds a single script evaluation. Zero means the default,
	// negative disables the limit.
	Timeout time.Duration
	// Workers is the number of files a streaming script handles at once.
	// Zero means one per CPU.
	Workers int
}

func (o LuaOptions) timeout() time.Duration {
	if o.Timeout == 0 {
		return defaultLuaTimeout
	}
	return o.Timeout
}

// newSandboxState opens only the base, string, table and math libraries.
// math.random is seeded from the step name and key so runs are repeatable.
func newSandboxState(step, key string) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openLib := func(name string, f lua.LGFunction) {
		L.Push(L.NewFunction(f))
		L.Push(lua.LString(name))
		L.Call(1, 0)
	}
	openLib(lua.BaseLibName, lua.OpenBase)
	openLib(lua.StringLibName, lua.OpenString)
	openLib(lua.TabLibName, lua.OpenTable)
	openLib(lua.MathLibName, lua.OpenMath)
	installDeterministicRandom(L, deterministicSeed(step, key))
	return L
}

func deterministicSeed(step, key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(step))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

func installDeterministicRandom(L *lua.LState, seed int64) {
	mathTbl, ok := L.GetGlobal("math").(*lua.LTable)
	if !ok || mathTbl == nil {
		return
	}
	rng := rand.New(rand.NewSource(seed))
	mathTbl.RawSetString("random", L.NewFunction(func(L *lua.LState) int {
		switch L.GetTop() {
		case 0:
			L.Push(lua.LNumber(rng.Float64()))
			return 1
		case 1:
			max := L.CheckInt(1)
			if max < 1 {
				L.ArgError(1, "interval is empty")
				return 0
			}
			L.Push(lua.LNumber(rng.Intn(max) + 1))
			return 1
		default:
			min := L.CheckInt(1)
			max := L.CheckInt(2)
			if max < min {
				L.ArgError(2, "interval is empty")
				return 0
			}
			L.Push(lua.LNumber(rng.Intn(max-min+1) + min))
			return 1
		}
	}))
	mathTbl.RawSetString("randomseed", L.NewFunction(func(L *lua.LState) int {
		return 0
	}))
}

var errSandboxTimeout = errors.New(sandboxTimeoutViolation)

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadline") || strings.Contains(msg, "context canceled")
}

// runSandboxed evaluates code in a fresh state prepared by setup. The single
// value the chunk returns is handed to after before the state is closed.
func runSandboxed(ctx context.Context, step, key string, opts LuaOptions, code string, setup func(*lua.LState), after func(*lua.LState, lua.LValue) error) error {
	L := newSandboxState(step, key)
	defer L.Close()

	if d := opts.timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	L.SetContext(ctx)

	setup(L)
	fn, err := L.LoadString(code)
	if err != nil {
		return err
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		if isTimeoutError(err) {
			return errSandboxTimeout
		}
		return err
	}
	ret := L.Get(-1)
	L.Pop(1)
	return after(L, ret)
}
