package env

import (
	"os"
	"sort"
	"strings"
)

// PathKey is the variable PrependPath edits.
const PathKey = "PATH"

type Map map[string]string

// Env is the environment handed to a child process. It is layered:
//   - Base: variables inherited from the parent process
//   - Override: variables set explicitly by configuration
//
// Lookup and Environ give precedence to Override over Base. The parent
// process environment is never modified.
type Env struct {
	Base     Map
	Override Map
}

// New returns an Env with both layers initialized and empty.
func New() *Env {
	return &Env{Base: Map{}, Override: Map{}}
}

// FromOS returns an Env whose base layer is a snapshot of os.Environ.
func FromOS() *Env {
	return FromList(os.Environ())
}

// FromList builds an Env from KEY=VALUE pairs. Entries without '=' are ignored;
// later duplicates win.
func FromList(kv []string) *Env {
	e := New()
	for _, pair := range kv {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		e.Base[k] = v
	}
	return e
}

// Lookup searches Override first, then Base.
func (e *Env) Lookup(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	if v, ok := e.Override[key]; ok {
		return v, true
	}
	if v, ok := e.Base[key]; ok {
		return v, true
	}
	return "", false
}

// Get returns the value for key or "" when unset.
func (e *Env) Get(key string) string {
	v, _ := e.Lookup(key)
	return v
}

// Set records an override. Empty keys are ignored.
func (e *Env) Set(key, value string) {
	if key == "" {
		return
	}
	if e.Override == nil {
		e.Override = Map{}
	}
	e.Override[key] = value
}

// PrependPath puts dir in front of the current PATH value. An empty dir is a
// no-op; a dir already leading PATH is not added twice.
func (e *Env) PrependPath(dir string) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return
	}
	cur := e.Get(PathKey)
	if cur == dir || strings.HasPrefix(cur, dir+string(os.PathListSeparator)) {
		return
	}
	if cur == "" {
		e.Set(PathKey, dir)
		return
	}
	e.Set(PathKey, dir+string(os.PathListSeparator)+cur)
}

// Clone returns a deep copy so callers can add overrides without touching the
// receiver.
func (e *Env) Clone() *Env {
	out := New()
	if e == nil {
		return out
	}
	for k, v := range e.Base {
		out.Base[k] = v
	}
	for k, v := range e.Override {
		out.Override[k] = v
	}
	return out
}

// Merged returns the effective variables (Base overridden by Override).
func (e *Env) Merged() Map {
	m := Map{}
	if e == nil {
		return m
	}
	for k, v := range e.Base {
		m[k] = v
	}
	for k, v := range e.Override {
		m[k] = v
	}
	return m
}

// Environ renders the effective variables as sorted KEY=VALUE pairs, the form
// exec.Cmd.Env expects.
func (e *Env) Environ() []string {
	m := e.Merged()
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
