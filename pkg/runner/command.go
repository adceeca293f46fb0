package runner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/pkg/domain"
)

// Commands understood by the runner. Each has a one-letter alias.
const (
	CommandTalisman = ":talisman"
	CommandSave     = ":save"
	CommandRestart  = ":restart"
	CommandHelp     = ":help"
	CommandQuit     = ":quit"
)

// ErrUnknownCommand is returned for a ':' line that names no command.
var ErrUnknownCommand = errors.New("unknown command")

// ActionKind is what a parsed line asks the runner to do.
type ActionKind int

const (
	ActionEvent ActionKind = iota
	ActionArtifact
	ActionSave
	ActionHelp
	ActionQuit
)

// Action is one parsed input line.
type Action struct {
	Kind  ActionKind
	Event talisman.Event
}

var commands = map[string]ActionKind{
	CommandTalisman: ActionArtifact,
	":t":            ActionArtifact,
	CommandSave:     ActionSave,
	":s":            ActionSave,
	CommandRestart:  ActionEvent,
	":r":            ActionEvent,
	CommandHelp:     ActionHelp,
	":h":            ActionHelp,
	CommandQuit:     ActionQuit,
	":q":            ActionQuit,
}

// ParseInput maps a sanitized line to an action given the current prompt.
// Numbers are 1-based indexes into the offered options.
func ParseInput(line string, p Prompt) (Action, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Action{}, domain.ErrEmptyInput
	}

	if strings.HasPrefix(line, ":") {
		name := strings.ToLower(strings.Fields(line)[0])
		kind, ok := commands[name]
		if !ok {
			return Action{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
		}
		if kind == ActionEvent {
			return Action{Kind: ActionEvent, Event: talisman.Restart()}, nil
		}
		return Action{Kind: kind}, nil
	}

	if n, err := strconv.Atoi(line); err == nil {
		if n < 1 || n > len(p.Options) {
			if p.FreeText {
				return Action{Kind: ActionEvent, Event: talisman.Text(line)}, nil
			}
			return Action{}, fmt.Errorf("%w: %d", domain.ErrInvalidOption, n)
		}
		return Action{Kind: ActionEvent, Event: talisman.Select(p.Options[n-1])}, nil
	}

	for _, opt := range p.Options {
		if strings.EqualFold(opt, line) {
			return Action{Kind: ActionEvent, Event: talisman.Select(opt)}, nil
		}
	}

	if p.FreeText {
		return Action{Kind: ActionEvent, Event: talisman.Text(line)}, nil
	}
	return Action{}, fmt.Errorf("%w: %q", domain.ErrInvalidOption, line)
}

// PromptFor describes the answers accepted in snap.
func PromptFor(snap *domain.Snapshot) Prompt {
	st := snap.State
	p := Prompt{
		Step:     st.Step,
		Options:  append([]string(nil), st.Offered...),
		FreeText: st.Step == domain.StepConcernSelect || st.Step == domain.StepDirectInput,
	}
	if snap.Affordances.CanGenerateArtifact && !snap.Affordances.ArtifactInFlight {
		p.Commands = append(p.Commands, CommandTalisman)
	}
	if snap.Affordances.CanSave {
		p.Commands = append(p.Commands, CommandSave)
	}
	if snap.Affordances.CanRestart {
		p.Commands = append(p.Commands, CommandRestart)
	}
	p.Commands = append(p.Commands, CommandHelp, CommandQuit)
	return p
}
