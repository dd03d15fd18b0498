package cli

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSession_Commands(t *testing.T) {
	var out bytes.Buffer
	err := RunSession(context.Background(), RunOptions{
		Plain: true,
		In:    strings.NewReader("inc\ninc\nset foo\nstate\nbogus\nhelp\nquit\ninc\n"),
		Out:   &out,
	})
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "# Tether")
	assert.Contains(t, output, "**counter**: 2")
	assert.Contains(t, output, "**value**: foo")
	assert.Contains(t, output, `{"counter":2,"value":"foo"}`)
	assert.Contains(t, output, `unknown command: "bogus"`)
	assert.Contains(t, output, "set <text>")
	assert.Contains(t, output, ">>> Finished at version 3.")
	// Nothing runs after quit
	assert.NotContains(t, output, "**counter**: 3")
}

func TestRunSession_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tether.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: cfg\ntitle: From File\ninitial:\n  counter: 41\n"), 0o644))

	var out bytes.Buffer
	err := RunSession(context.Background(), RunOptions{
		ConfigPath: path,
		Title:      "Overridden",
		Plain:      true,
		In:         strings.NewReader("inc\n"),
		Out:        &out,
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "# Overridden")
	assert.Contains(t, out.String(), "**counter**: 42")
	assert.Contains(t, out.String(), "Finished at version 1.")
}

func TestRunSession_InvalidInitialState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tether.yaml")
	require.NoError(t, os.WriteFile(path, []byte("initial:\n  unknown: 1\n"), 0o644))

	err := RunSession(context.Background(), RunOptions{
		ConfigPath: path,
		Plain:      true,
		In:         strings.NewReader(""),
		Out:        &bytes.Buffer{},
	})
	assert.ErrorContains(t, err, "error initializing store")
}

func TestRunSession_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	// A pipe that never delivers input: only the cancellation ends the session.
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	err = RunSession(ctx, RunOptions{Plain: true, In: r, Out: &out})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Interrupted at version 0.")
}

func TestRunSession_OversizedLines(t *testing.T) {
	var out bytes.Buffer
	// Rejected by the sanitizer, the session goes on.
	medium := "set " + strings.Repeat("a", 5000)
	// Too long for the line reader: the session stops with an error.
	huge := "set " + strings.Repeat("b", 70*1024)

	err := RunSession(context.Background(), RunOptions{
		Plain: true,
		In:    strings.NewReader("inc\n" + medium + "\ninc\n" + huge + "\ninc\n"),
		Out:   &out,
	})
	require.ErrorIs(t, err, bufio.ErrTooLong)

	output := out.String()
	assert.Contains(t, output, "input exceeds maximum allowed size")
	assert.Contains(t, output, "Input stopped at version 2")
	assert.NotContains(t, output, "Finished at version")
	assert.NotContains(t, output, "**counter**: 3")
}
