package demo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/tether"
)

// ErrUnknownCommand is returned by Parse for unrecognized input.
var ErrUnknownCommand = errors.New("unknown command")

// CommandKind enumerates the stdin commands of the demo host.
type CommandKind string

const (
	CommandIncrement CommandKind = "inc"
	CommandSet       CommandKind = "set"
	CommandState     CommandKind = "state"
	CommandHelp      CommandKind = "help"
	CommandQuit      CommandKind = "quit"
)

// Command is one parsed input line.
type Command struct {
	Kind CommandKind
	Arg  string
}

// Help lists the commands understood by Parse.
const Help = `Commands:
  inc          increment the counter
  set <text>   replace the value
  state        print the current state
  help         show this help
  quit         exit`

// Parse reads one input line. Blank lines yield a zero Command and no error.
// The line is sanitized first; see SanitizeInput.
func Parse(line string) (Command, error) {
	line, err := SanitizeInput(line)
	if err != nil {
		return Command{}, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, nil
	}

	head, rest, _ := strings.Cut(line, " ")
	switch strings.ToLower(head) {
	case "inc", "+":
		return Command{Kind: CommandIncrement}, nil
	case "set":
		return Command{Kind: CommandSet, Arg: strings.TrimSpace(rest)}, nil
	case "state":
		return Command{Kind: CommandState}, nil
	case "help", "?":
		return Command{Kind: CommandHelp}, nil
	case "quit", "exit", "q":
		return Command{Kind: CommandQuit}, nil
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, head)
}

// Execute runs cmd through the instance's mapped callbacks, the way the component itself would.
func Execute(inst *tether.Instance[State, TestProps, TestMapped], cmd Command) error {
	mapped := inst.Props().Mapped
	switch cmd.Kind {
	case CommandIncrement:
		return mapped.Increment()
	case CommandSet:
		return mapped.UpdateValue(cmd.Arg)
	}
	return nil
}
