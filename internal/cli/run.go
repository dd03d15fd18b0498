package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/tether"
	"github.com/aretw0/tether/internal/config"
	"github.com/aretw0/tether/internal/demo"
	"github.com/aretw0/tether/internal/presentation/tui"
	"github.com/aretw0/tether/pkg/domain"
	"golang.org/x/term"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	ConfigPath string
	Title      string // Overrides the configured title when set
	Debug      bool
	Plain      bool // Write raw markdown instead of styled output

	In  io.Reader // Defaults to os.Stdin
	Out io.Writer // Defaults to os.Stdout
}

// RunSession mounts the demo component and drives it from line commands until quit,
// end of input or cancellation of ctx.
func RunSession(ctx context.Context, opts RunOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Title != "" {
		cfg.Title = opts.Title
	}

	logger := createLogger(opts.Debug, "")
	interactive := isTerminal(opts.In)

	storeOpts := []tether.Option{tether.WithName(cfg.Name), tether.WithLogger(logger)}
	if opts.Debug {
		storeOpts = append(storeOpts, tether.WithLifecycleHooks(createDebugHooks(logger)))
	}
	store, err := demo.NewStore(cfg.Initial, storeOpts...)
	if err != nil {
		return fmt.Errorf("error initializing store: %w", err)
	}

	journal, closeJournal, err := setupJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer closeJournal()

	provider := store.NewProvider(tether.WithJournal(journal))
	defer provider.Close()

	var render func(string) (string, error)
	if !opts.Plain {
		var rendererOpts []tui.RendererOption
		if !interactive {
			rendererOpts = append(rendererOpts, tui.WithStyle("notty"))
		}
		if render, err = tui.NewRenderer(rendererOpts...); err != nil {
			return err
		}
	}

	if interactive && !opts.Plain {
		tui.PrintBanner(opts.Out)
	}

	conn, err := demo.Connected(store, opts.Out, render)
	if err != nil {
		return err
	}
	inst, err := conn.Mount(provider.Scope(ctx), demo.TestProps{Title: cfg.Title})
	if err != nil {
		return fmt.Errorf("failed to mount component: %w", err)
	}
	defer inst.Unmount()

	// Stops the reader goroutine when the session ends before the input does.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := readLines(ctx, opts.In)
	for {
		if interactive {
			fmt.Fprint(opts.Out, "> ")
		}

		var line string
		select {
		case <-ctx.Done():
			printSystemMessage(opts.Out, "Interrupted at version %d.", provider.Version())
			return nil
		case l, ok := <-lines:
			if !ok {
				printSystemMessage(opts.Out, "Finished at version %d.", provider.Version())
				return nil
			}
			if l.err != nil {
				printSystemMessage(opts.Out, "Input stopped at version %d: %v", provider.Version(), l.err)
				return fmt.Errorf("failed to read input: %w", l.err)
			}
			line = l.text
		}

		cmd, err := demo.Parse(line)
		if err != nil {
			printSystemMessage(opts.Out, "%v (type 'help')", err)
			continue
		}

		switch cmd.Kind {
		case "":
		case demo.CommandQuit:
			printSystemMessage(opts.Out, "Finished at version %d.", provider.Version())
			return nil
		case demo.CommandHelp:
			fmt.Fprintln(opts.Out, demo.Help)
		case demo.CommandState:
			data, _ := json.Marshal(provider.Get())
			fmt.Fprintln(opts.Out, string(data))
		default:
			if err := demo.Execute(inst, cmd); err != nil {
				reportError(opts.Out, err)
			}
		}
	}
}

// reportError prints dispatch failures. Subscriber failures keep the committed state.
func reportError(w io.Writer, err error) {
	var subErr *domain.SubscriberError
	if errors.As(err, &subErr) {
		printSystemMessage(w, "State committed, but %d subscriber(s) failed: %v", len(subErr.Failures), err)
		return
	}
	printSystemMessage(w, "Error: %v", err)
}

// inputLine is one line read from the session input, or the error that stopped reading.
type inputLine struct {
	text string
	err  error
}

// readLines streams lines from r. A read error (such as a line longer than
// bufio.MaxScanTokenSize) is sent as the last item. The channel is closed at the
// end of input or when ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan inputLine {
	out := make(chan inputLine)
	send := func(l inputLine) bool {
		select {
		case out <- l:
			return true
		case <-ctx.Done():
			return false
		}
	}
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if !send(inputLine{text: scanner.Text()}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			send(inputLine{err: err})
		}
	}()
	return out
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
