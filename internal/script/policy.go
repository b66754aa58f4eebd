// Package script runs the Lua input policy that decides what the
// application does with keys and close requests.
//
// A policy script defines two optional global functions:
//
//	function on_key(name, rune, mods)  -- returns action[, argument]
//	function on_close()                -- returns true to exit
//
// Actions returned by on_key are "exit", "title" with the new title, and
// "color" with a hex foreground color. nil means nothing to do.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/windbus/internal/logging"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 100 * time.Millisecond

// DefaultSource is the built-in policy: q or Ctrl+C exits, and so does a
// close request.
const DefaultSource = `
function on_key(name, rune, mods)
  if rune == "q" or name == "Ctrl+C" then
    return "exit"
  end
end

function on_close()
  return true
end
`

// ErrPolicyClosed is returned after Close.
var ErrPolicyClosed = errors.New("policy closed")

// ActionKind is what a key hook asked for.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionExit
	ActionTitle
	ActionColor
)

// String returns the action name as written in scripts.
func (k ActionKind) String() string {
	switch k {
	case ActionNone:
		return "none"
	case ActionExit:
		return "exit"
	case ActionTitle:
		return "title"
	case ActionColor:
		return "color"
	default:
		return "unknown"
	}
}

// Action is the result of a key hook.
type Action struct {
	Kind ActionKind
	Arg  string
}

// Key is the input handed to on_key.
type Key struct {
	// Name is the key name, such as "Enter" or "Ctrl+C".
	Name string
	// Rune is the typed character, or zero.
	Rune rune
	// Mods lists held modifiers, such as "ctrl" and "alt".
	Mods []string
}

// Policy is a loaded policy script. gopher-lua states are not goroutine
// safe; Policy serializes calls.
type Policy struct {
	mu      sync.Mutex
	L       *lua.LState
	timeout time.Duration
	log     *slog.Logger
	closed  bool
}

// Option configures a Policy.
type Option func(*Policy)

// WithTimeout bounds each hook call.
func WithTimeout(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger behind windbus.log.
func WithLogger(l *slog.Logger) Option {
	return func(p *Policy) {
		p.log = l
	}
}

// Load compiles a policy from a file. An empty path loads DefaultSource.
func Load(path string, opts ...Option) (*Policy, error) {
	p := newPolicy(opts...)
	var err error
	if path == "" {
		err = p.run(func() error { return p.L.DoString(DefaultSource) })
	} else {
		err = p.run(func() error { return p.L.DoFile(path) })
	}
	if err != nil {
		p.L.Close()
		return nil, &Error{Hook: "load", Err: err}
	}
	return p, nil
}

// LoadString compiles a policy from source.
func LoadString(source string, opts ...Option) (*Policy, error) {
	p := newPolicy(opts...)
	if err := p.run(func() error { return p.L.DoString(source) }); err != nil {
		p.L.Close()
		return nil, &Error{Hook: "load", Err: err}
	}
	return p, nil
}

func newPolicy(opts ...Option) *Policy {
	p := &Policy{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logging.Logger()
	}
	p.log = p.log.With("component", "script")

	p.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(p.L)
	p.installAPI()
	return p
}

// openSafeLibraries opens base, table, string and math. io, os, debug and
// package stay closed, and the base loaders that read files are removed.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// installAPI exposes the windbus table.
func (p *Policy) installAPI() {
	mod := p.L.SetFuncs(p.L.NewTable(), map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			p.log.Info(L.CheckString(1))
			return 0
		},
	})
	p.L.SetGlobal("windbus", mod)
}

// OnKey runs on_key. A script without on_key does nothing.
func (p *Policy) OnKey(key Key) (Action, error) {
	mods := &lua.LTable{}
	for _, m := range key.Mods {
		mods.Append(lua.LString(m))
	}
	var r lua.LValue = lua.LString("")
	if key.Rune != 0 {
		r = lua.LString(string(key.Rune))
	}

	ret, err := p.call("on_key", lua.LString(key.Name), r, mods)
	if err != nil || len(ret) == 0 {
		return Action{}, err
	}
	return parseAction(ret)
}

// OnClose runs on_close. A script without on_close exits.
func (p *Policy) OnClose() (bool, error) {
	ret, err := p.call("on_close")
	if err != nil {
		return false, err
	}
	if ret == nil {
		return true, nil
	}
	if len(ret) == 0 {
		return false, nil
	}
	return lua.LVAsBool(ret[0]), nil
}

// Close releases the Lua state.
func (p *Policy) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.L.Close()
	}
}

// call invokes a global hook. It returns nil results when the hook is not
// defined.
func (p *Policy) call(hook string, args ...lua.LValue) ([]lua.LValue, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPolicyClosed
	}

	fn, ok := p.L.GetGlobal(hook).(*lua.LFunction)
	if !ok {
		return nil, nil
	}

	top := p.L.GetTop()
	err := p.run(func() error {
		return p.L.CallByParam(lua.P{Fn: fn, NRet: lua.MultRet, Protect: true}, args...)
	})
	if err != nil {
		p.L.SetTop(top)
		return nil, &Error{Hook: hook, Err: err}
	}

	n := p.L.GetTop() - top
	ret := make([]lua.LValue, n)
	for i := 0; i < n; i++ {
		ret[i] = p.L.Get(top + i + 1)
	}
	p.L.SetTop(top)
	return ret, nil
}

// run executes fn under the call timeout with panic recovery.
func (p *Policy) run(fn func() error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	p.L.SetContext(ctx)
	defer p.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

func parseAction(ret []lua.LValue) (Action, error) {
	if ret[0] == lua.LNil {
		return Action{}, nil
	}
	name, ok := ret[0].(lua.LString)
	if !ok {
		return Action{}, &Error{Hook: "on_key", Err: fmt.Errorf("action must be a string, got %s", ret[0].Type())}
	}

	var arg string
	if len(ret) > 1 && ret[1] != lua.LNil {
		arg = ret[1].String()
	}

	switch string(name) {
	case "", "none":
		return Action{}, nil
	case "exit":
		return Action{Kind: ActionExit}, nil
	case "title":
		return Action{Kind: ActionTitle, Arg: arg}, nil
	case "color":
		if arg == "" {
			return Action{}, &Error{Hook: "on_key", Err: errors.New("color needs a hex argument")}
		}
		return Action{Kind: ActionColor, Arg: arg}, nil
	default:
		return Action{}, &Error{Hook: "on_key", Err: fmt.Errorf("unknown action %q", name)}
	}
}

// Error is a failed policy load or hook call.
type Error struct {
	Hook string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("policy %s: %v", e.Hook, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
