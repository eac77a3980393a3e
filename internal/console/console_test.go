package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polarlab/polarlab/internal/system"
)

// serve answers queued commands the way the input system does.
func serve(ctx context.Context, cmds <-chan system.Command, fn func(string) system.Result) {
	for {
		select {
		case cmd := <-cmds:
			cmd.Reply <- fn(cmd.Line)
		case <-ctx.Done():
			return
		}
	}
}

func TestHandle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmds := make(chan system.Command, 1)
	go serve(ctx, cmds, func(line string) system.Result {
		if line == "bad" {
			return system.Result{Err: errors.New("unknown command")}
		}
		return system.Result{Out: "ran " + line}
	})

	var out bytes.Buffer
	c := New(cmds, &out, nil)
	assert.False(t, c.Handle(ctx, "  stats "))
	assert.False(t, c.Handle(ctx, "bad"))
	assert.False(t, c.Handle(ctx, ""))
	assert.True(t, c.Handle(ctx, "quit"))
	assert.True(t, c.Handle(ctx, "exit"))
	assert.Equal(t, "ran stats\nerror: unknown command\n", out.String())
}

func TestSubmit_Busy(t *testing.T) {
	cmds := make(chan system.Command)
	c := New(cmds, &bytes.Buffer{}, nil)
	_, err := c.Submit(context.Background(), "stats")
	assert.ErrorIs(t, err, ErrBusy)
}

func TestSubmit_TimeoutAndCancel(t *testing.T) {
	cmds := make(chan system.Command, 2)
	c := New(cmds, &bytes.Buffer{}, nil)
	c.timeout = 10 * time.Millisecond
	_, err := c.Submit(context.Background(), "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reply")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.timeout = time.Minute
	_, err = c.Submit(ctx, "stats")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompleter(t *testing.T) {
	pc := Completer([]string{"insert", "remove"})
	var names []string
	for _, ch := range pc.GetChildren() {
		names = append(names, strings.TrimSpace(string(ch.GetName())))
	}
	assert.Equal(t, []string{"insert", "remove", "exit", "quit"}, names)
}
