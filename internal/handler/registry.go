package handler

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/polarlab/polarlab/internal/core/event"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
)

// HandlerFunc runs one command. Output goes to out; a returned error is
// reported to the caller after out's contents.
type HandlerFunc func(out *Reply, args []string, deps *Deps) error

type handlerEntry struct {
	fn    HandlerFunc
	usage string
	help  string
}

// Registry maps command verbs to handlers.
type Registry struct {
	handlers map[string]*handlerEntry
	aliases  map[string]string
	deps     *Deps
	log      *zap.Logger
}

func NewRegistry(deps *Deps) *Registry {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		handlers: make(map[string]*handlerEntry),
		aliases:  make(map[string]string),
		deps:     deps,
		log:      log,
	}
}

// Register maps verb (and any aliases) to fn. usage is the argument synopsis
// shown by help.
func (reg *Registry) Register(verb, usage, help string, fn HandlerFunc, aliases ...string) {
	reg.handlers[verb] = &handlerEntry{fn: fn, usage: usage, help: help}
	for _, a := range aliases {
		reg.aliases[a] = verb
	}
}

// Verbs lists registered verbs in sorted order, aliases excluded.
func (reg *Registry) Verbs() []string {
	verbs := make([]string, 0, len(reg.handlers))
	for v := range reg.handlers {
		verbs = append(verbs, v)
	}
	slices.Sort(verbs)
	return verbs
}

// Execute parses and runs one command line on the game loop goroutine.
// Failures are also emitted as CommandFailed events.
func (reg *Registry) Execute(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	verb := strings.ToLower(fields[0])
	if v, ok := reg.aliases[verb]; ok {
		verb = v
	}

	var out Reply
	entry, ok := reg.handlers[verb]
	if !ok {
		err := fmt.Errorf("%w %q, try help", ErrUnknownCommand, fields[0])
		reg.fail(line, err)
		return "", err
	}

	reg.log.Debug("command", zap.String("verb", verb), zap.Strings("args", fields[1:]))
	if err := reg.safeCall(entry, &out, fields[1:], verb); err != nil {
		if errors.Is(err, ErrUsage) {
			err = fmt.Errorf("%w: %s %s", ErrUsage, verb, entry.usage)
		}
		reg.fail(line, err)
		return out.String(), err
	}
	return out.String(), nil
}

func (reg *Registry) fail(line string, err error) {
	if reg.deps.Bus != nil {
		event.Emit(reg.deps.Bus, event.CommandFailed{Line: line, Err: err})
	}
}

// safeCall executes a handler with panic recovery so a bad command cannot
// take down the game loop.
func (reg *Registry) safeCall(entry *handlerEntry, out *Reply, args []string, verb string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("command handler panic recovered",
				zap.String("verb", verb),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("command %s panicked: %v", verb, rec)
		}
	}()
	return entry.fn(out, args, reg.deps)
}

// Reply accumulates handler output lines.
type Reply struct {
	lines []string
}

func (r *Reply) Msg(s string) { r.lines = append(r.lines, s) }

func (r *Reply) Msgf(format string, a ...any) { r.Msg(fmt.Sprintf(format, a...)) }

func (r *Reply) String() string { return strings.Join(r.lines, "\n") }
