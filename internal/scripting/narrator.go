package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Hook names the narrator dispatches. Each is an optional global Lua
// function; when defined and returning a non-empty string, that string
// replaces the default log message.
const (
	HookAttack    = "on_attack"
	HookSpell     = "on_spell"
	HookDefeat    = "on_defeat"
	HookVictory   = "on_victory"
	HookDefeatEnd = "on_defeat_end"
)

// Narrator owns a single sandboxed LState loaded from a script directory
// and rewrites combat log messages through optional Lua hooks.
//
// All methods serialize on an internal mutex; the LState is single-threaded.
// A zero-value Narrator (or one that never loaded scripts) answers every
// lookup with "use the default message".
type Narrator struct {
	mu     sync.Mutex
	state  *lua.LState
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewNarrator creates a Narrator with no scripts loaded.
//
// Precondition: logger must be non-nil.
func NewNarrator(logger *zap.Logger) *Narrator {
	return &Narrator{logger: logger}
}

// Load creates a sandboxed VM and executes every *.lua file in scriptDir in
// lexicographic order, replacing any previously loaded VM.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Returns nil and the VM is installed, or an error and the
// previous VM (if any) remains in effect.
func (n *Narrator) Load(scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	n.mu.Lock()
	if n.state != nil {
		if n.cancel != nil {
			n.cancel()
		}
		n.state.Close()
	}
	n.state = L
	n.cancel = cancel
	n.mu.Unlock()
	return nil
}

// Close releases the VM. Safe on a Narrator that never loaded.
func (n *Narrator) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != nil {
		if n.cancel != nil {
			n.cancel()
		}
		n.state.Close()
		n.state = nil
	}
}

// Narrate calls the named hook with args and returns its string result.
// Returns ("", false) when no VM is loaded, the hook is undefined, the hook
// returns nil or a non-string, or a Lua runtime error occurs. Lua errors are
// logged at Warn level and never propagate.
func (n *Narrator) Narrate(hook string, args ...lua.LValue) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state == nil {
		return "", false
	}
	L := n.state

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return "", false
	}

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		n.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return "", false
	}

	ret := L.Get(-1)
	L.Pop(1)
	if s, ok := ret.(lua.LString); ok && string(s) != "" {
		return string(s), true
	}
	return "", false
}

// NarrateAttack runs the on_attack hook for a landed or missed attack.
func (n *Narrator) NarrateAttack(attacker, target string, damage int, critical, miss bool) (string, bool) {
	return n.Narrate(HookAttack,
		lua.LString(attacker),
		lua.LString(target),
		lua.LNumber(damage),
		lua.LBool(critical),
		lua.LBool(miss),
	)
}

// NarrateSpell runs the on_spell hook for a resolved spell cast.
func (n *Narrator) NarrateSpell(caster, target, spellID string, amount int) (string, bool) {
	return n.Narrate(HookSpell,
		lua.LString(caster),
		lua.LString(target),
		lua.LString(spellID),
		lua.LNumber(amount),
	)
}

// NarrateDefeat runs the on_defeat hook for a fallen entity.
func (n *Narrator) NarrateDefeat(name string) (string, bool) {
	return n.Narrate(HookDefeat, lua.LString(name))
}

// NarrateEnd runs the terminal hook for the encounter result.
func (n *Narrator) NarrateEnd(victory bool) (string, bool) {
	if victory {
		return n.Narrate(HookVictory)
	}
	return n.Narrate(HookDefeatEnd)
}
