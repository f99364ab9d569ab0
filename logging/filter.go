package logging

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// FilterEnv is the environment a filter expression is evaluated against.
// Example: `Category == "render" && AtLeast("warn")`.
type FilterEnv struct {
	Type      string
	Category  string
	Severity  int
	Seq       uint64
	Actor     string
	ActorKind string
	TraceID   string
}

// AtLeast reports whether the event severity is at or above level.
func (e FilterEnv) AtLeast(level string) bool {
	sev, ok := ParseSeverity(strings.ToLower(level))
	if !ok {
		return false
	}
	return e.Severity >= int(sev)
}

// HasPrefix is exposed so filters can select event families, e.g.
// `HasPrefix(Type, "network.")`.
func (e FilterEnv) HasPrefix(s, prefix string) bool {
	return strings.HasPrefix(s, prefix)
}

// Filter is a compiled boolean expression over events. A nil Filter accepts
// everything.
type Filter struct {
	src     string
	program *vm.Program
}

// CompileFilter compiles src. An empty source yields a nil filter.
func CompileFilter(src string) (*Filter, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	prog, err := expr.Compile(src, expr.Env(FilterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile log filter %q: %w", src, err)
	}
	return &Filter{src: src, program: prog}, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.src
}

// Match evaluates the filter. Evaluation errors reject the event.
func (f *Filter) Match(event Event) bool {
	if f == nil {
		return true
	}
	env := FilterEnv{
		Type:      string(event.Type),
		Category:  event.Category,
		Severity:  int(event.Severity),
		Seq:       event.Seq,
		Actor:     event.Actor.ID,
		ActorKind: string(event.Actor.Kind),
		TraceID:   event.TraceID,
	}
	result, err := vm.Run(f.program, env)
	if err != nil {
		return false
	}
	match, ok := result.(bool)
	return ok && match
}
