package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/talisman/pkg/domain"
)

// transitionFunc validates ev against the current state and returns its effect.
// It must not have side effects of its own.
type transitionFunc func(c *Conversation, st domain.DialogueState, ev Event) (effect, error)

var transitions = map[domain.Step]map[EventKind]transitionFunc{
	domain.StepInitial: {
		EventStart: onStart,
	},
	domain.StepConcernSelect: {
		EventSelect:  onConcernSelect,
		EventText:    onFreeText,
		EventRestart: onRestart,
	},
	domain.StepDirectInput: {
		EventText:    onFreeText,
		EventRestart: onRestart,
	},
	domain.StepDetailLevel1: {
		EventSelect:  onTopicSelect,
		EventRestart: onRestart,
	},
	domain.StepDetailLevel2: {
		EventSelect:  onDetailSelect,
		EventRestart: onRestart,
	},
	domain.StepDetailLevel3: {
		EventSelect:  onLeafSelect,
		EventRestart: onRestart,
	},
	domain.StepFortuneResult: {
		EventSelect:  onResultSelect,
		EventRestart: onRestart,
	},
}

func (c *Conversation) transition(st domain.DialogueState, ev Event) (effect, error) {
	fn, ok := transitions[st.Step][ev.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", domain.ErrInvalidTransition, ev.Kind, st.Step)
	}
	return fn(c, st, ev)
}

func requireOffered(st domain.DialogueState, option string) error {
	if !st.Offers(option) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidOption, option)
	}
	return nil
}

func onStart(c *Conversation, st domain.DialogueState, ev Event) (effect, error) {
	return func(ctx context.Context) error {
		return c.playWelcome(ctx, ev)
	}, nil
}

func (c *Conversation) playWelcome(ctx context.Context, ev Event) error {
	c.mu.Lock()
	profile := c.profile
	c.mu.Unlock()

	if err := c.narrate(ctx, welcome(profile)...); err != nil {
		return err
	}

	next := domain.NewDialogueState()
	next.Step = domain.StepConcernSelect
	next.Offered = append(c.taxonomy.CategoryNames(), OptionDirectInput)
	c.advance(ctx, ev, next)
	return nil
}

func onConcernSelect(c *Conversation, st domain.DialogueState, ev Event) (effect, error) {
	if err := requireOffered(st, ev.Value); err != nil {
		return nil, err
	}

	if ev.Value == OptionDirectInput {
		return func(ctx context.Context) error {
			c.echo(ev.Value)
			if err := c.narrate(ctx, directInputPrompt); err != nil {
				return err
			}
			next := st.Clone()
			next.Step = domain.StepDirectInput
			next.Offered = nil
			c.advance(ctx, ev, next)
			return nil
		}, nil
	}

	topics, err := c.taxonomy.Topics(ev.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidOption, err)
	}
	return func(ctx context.Context) error {
		c.echo(ev.Value)
		if err := c.narrate(ctx, ackCategory(ev.Value)...); err != nil {
			return err
		}
		next := st.Clone()
		next.Step = domain.StepDetailLevel1
		next.Path = domain.ConcernPath{Category: ev.Value}
		next.Offered = topics
		c.advance(ctx, ev, next)
		return nil
	}, nil
}

func onTopicSelect(c *Conversation, st domain.DialogueState, ev Event) (effect, error) {
	if err := requireOffered(st, ev.Value); err != nil {
		return nil, err
	}
	details, err := c.taxonomy.Details(st.Path.Category, ev.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidOption, err)
	}
	return func(ctx context.Context) error {
		c.echo(ev.Value)
		if err := c.narrate(ctx, ackTopic(ev.Value)...); err != nil {
			return err
		}
		next := st.Clone()
		next.Step = domain.StepDetailLevel2
		next.Path.Topic = ev.Value
		next.Offered = details
		c.advance(ctx, ev, next)
		return nil
	}, nil
}

func onDetailSelect(c *Conversation, st domain.DialogueState, ev Event) (effect, error) {
	if err := requireOffered(st, ev.Value); err != nil {
		return nil, err
	}
	options, err := c.taxonomy.Options(st.Path.Category, st.Path.Topic, ev.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidOption, err)
	}
	return func(ctx context.Context) error {
		c.echo(ev.Value)
		if err := c.narrate(ctx, ackDetail(ev.Value)...); err != nil {
			return err
		}
		next := st.Clone()
		next.Step = domain.StepDetailLevel3
		next.Path.Detail = ev.Value
		next.Offered = options
		c.advance(ctx, ev, next)
		return nil
	}, nil
}

func onLeafSelect(c *Conversation, st domain.DialogueState, ev Event) (effect, error) {
	if err := requireOffered(st, ev.Value); err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		c.echo(ev.Value)
		next := st.Clone()
		next.Path.Leaf = ev.Value
		next.ConcernText = next.Path.Text()
		next.Offered = nil
		return c.runResult(ctx, ev, next)
	}, nil
}

func onFreeText(c *Conversation, st domain.DialogueState, ev Event) (effect, error) {
	text := strings.TrimSpace(ev.Value)
	if text == "" {
		return nil, domain.ErrEmptyInput
	}
	return func(ctx context.Context) error {
		c.echo(text)
		next := st.Clone()
		next.Path = domain.ConcernPath{}
		next.FreeText = text
		next.ConcernText = text
		next.Offered = nil
		return c.runResult(ctx, ev, next)
	}, nil
}

func onResultSelect(c *Conversation, st domain.DialogueState, ev Event) (effect, error) {
	if err := requireOffered(st, ev.Value); err != nil {
		return nil, err
	}
	return onRestart(c, st, ev)
}

func onRestart(c *Conversation, st domain.DialogueState, ev Event) (effect, error) {
	return func(ctx context.Context) error {
		c.reset(ctx)
		c.advance(ctx, ev, domain.NewDialogueState())
		return c.playWelcome(ctx, ev)
	}, nil
}

// reset clears every cycle-scoped resource: the artifact job, the saved flag, the
// transcript and the reactions.
func (c *Conversation) reset(ctx context.Context) {
	c.mu.Lock()
	c.cycleCancel()
	c.cycleCtx, c.cycleCancel = context.WithCancel(c.ctx)
	c.reactions = nil
	c.mu.Unlock()

	if c.artifacts != nil {
		c.artifacts.Reset(ctx)
	}
	if c.recorder != nil {
		c.recorder.Reset()
	}
	c.seq.Reset()
}
