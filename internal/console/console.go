// Package console is the interactive debug REPL. Lines are queued for the
// game loop; the console goroutine never touches the world.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ergochat/readline"
	"go.uber.org/zap"

	"github.com/polarlab/polarlab/internal/config"
	"github.com/polarlab/polarlab/internal/system"
)

// ErrBusy is returned when the command queue is full.
var ErrBusy = errors.New("console: command queue full")

// Console reads lines with readline and forwards them to the game loop.
type Console struct {
	rl      *readline.Instance
	cmds    chan<- system.Command
	out     io.Writer
	timeout time.Duration
	log     *zap.Logger
}

// Completer builds a prefix completer over the command verbs plus exit/quit.
func Completer(verbs []string) *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(verbs)+2)
	for _, v := range verbs {
		items = append(items, readline.PcItem(v))
	}
	items = append(items, readline.PcItem("exit"), readline.PcItem("quit"))
	return readline.NewPrefixCompleter(items...)
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// Open starts a readline session on the terminal.
func Open(cfg config.ConsoleConfig, verbs []string, cmds chan<- system.Command, log *zap.Logger) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          cfg.Prompt,
		HistoryFile:     cfg.HistoryFile,
		AutoComplete:    Completer(verbs),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return nil, fmt.Errorf("open console: %w", err)
	}
	c := New(cmds, rl.Stdout(), log)
	c.rl = rl
	return c, nil
}

// New returns a console without a terminal, for feeding lines directly.
func New(cmds chan<- system.Command, out io.Writer, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{cmds: cmds, out: out, timeout: 5 * time.Second, log: log}
}

func (c *Console) Close() error {
	if c.rl != nil {
		_ = c.rl.Close()
		c.rl = nil
	}
	return nil
}

// Run reads lines until exit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	for {
		line, err := c.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) != 0 {
				continue
			}
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if done := c.Handle(ctx, line); done {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Handle runs one line and prints the reply. It reports true on exit/quit.
func (c *Console) Handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false
	case "exit", "quit":
		return true
	}
	out, err := c.Submit(ctx, line)
	if out != "" {
		_, _ = fmt.Fprintln(c.out, out)
	}
	if err != nil {
		_, _ = fmt.Fprintf(c.out, "error: %v\n", err)
	}
	return false
}

// Submit queues line and waits for the game loop's reply.
func (c *Console) Submit(ctx context.Context, line string) (string, error) {
	reply := make(chan system.Result, 1)
	select {
	case c.cmds <- system.Command{Line: line, Reply: reply}:
	default:
		return "", ErrBusy
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case res := <-reply:
		return res.Out, res.Err
	case <-timer.C:
		c.log.Warn("console reply timed out", zap.String("line", line))
		return "", fmt.Errorf("no reply after %s", c.timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
