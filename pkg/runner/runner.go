package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/internal/logging"
	"github.com/aretw0/talisman/pkg/domain"
)

// Runner plays one conversation against an IOHandler until the user quits or the
// input ends.
type Runner struct {
	Handler IOHandler
	Logger  *slog.Logger
	Signals *SignalManager
	Replay  bool
}

// NewRunner creates a runner reading from stdin and writing to stdout by default.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	return r
}

// Run drives conv. A conversation in the initial step is started first. Run returns nil
// when the user quits, the input is exhausted or ctx is canceled. It subscribes to conv
// once, so a conversation should be run by a single Runner.
func (r *Runner) Run(ctx context.Context, conv *talisman.Conversation) error {
	conv.Subscribe(func(ev domain.TurnEvent) {
		if err := r.Handler.Turn(ctx, ev); err != nil {
			r.Logger.Debug("turn output failed", "err", err)
		}
	})

	if conv.State().Step == domain.StepInitial {
		if err := r.dispatch(ctx, conv, talisman.StartEvent()); err != nil {
			return r.finish(ctx, err)
		}
		if conv.State().Step == domain.StepInitial {
			// Interrupted before the welcome finished.
			return nil
		}
	} else if r.Replay {
		for _, t := range conv.Transcript() {
			if err := r.Handler.Turn(ctx, domain.TurnEvent{Kind: domain.TurnRevealed, Turn: &t}); err != nil {
				return err
			}
		}
	}

	for {
		p := PromptFor(conv.Snapshot())
		if err := r.Handler.Prompt(ctx, p); err != nil {
			return err
		}

		line, err := r.read(ctx)
		if err != nil {
			return r.finish(ctx, err)
		}

		clean, err := SanitizeInput(line)
		if err != nil {
			r.say(ctx, messageFor(err))
			continue
		}
		act, err := ParseInput(clean, p)
		if errors.Is(err, domain.ErrEmptyInput) {
			continue
		}
		if err != nil {
			r.say(ctx, messageFor(err))
			continue
		}

		switch act.Kind {
		case ActionQuit:
			r.Logger.Info("chat ended by user", "session_id", conv.ID())
			return nil
		case ActionHelp:
			r.say(ctx, helpText(p))
		case ActionSave:
			id, err := conv.Save(ctx)
			if err != nil {
				r.say(ctx, messageFor(err))
				continue
			}
			r.say(ctx, fmt.Sprintf("상담 기록을 저장했어요. (%s)", id))
		case ActionArtifact:
			if _, err := conv.RequestArtifact(ctx); err != nil {
				r.say(ctx, messageFor(err))
			}
		case ActionEvent:
			if err := r.dispatch(ctx, conv, act.Event); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.say(ctx, messageFor(err))
			}
		}
	}
}

// dispatch handles ev synchronously. With a SignalManager, Ctrl+C cancels the
// narration and re-arms the listener.
func (r *Runner) dispatch(ctx context.Context, conv *talisman.Conversation, ev talisman.Event) error {
	stepCtx, cancel := r.interruptible(ctx)
	defer cancel()

	err := conv.Handle(stepCtx, ev)
	if err != nil && ctx.Err() == nil && r.Signals != nil && r.Signals.Context().Err() != nil {
		r.Logger.Debug("narration interrupted", "event", ev.Kind)
		r.Signals.Reset()
		r.say(ctx, "이야기를 멈췄어요.")
		return nil
	}
	return err
}

func (r *Runner) read(ctx context.Context) (string, error) {
	inputCtx, cancel := r.interruptible(ctx)
	defer cancel()

	line, err := r.Handler.Input(inputCtx)
	if err != nil && r.Signals != nil {
		// Ctrl+C may surface as EOF slightly before the signal context is canceled.
		r.Signals.CheckRace()
	}
	return line, err
}

func (r *Runner) interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	stepCtx, cancel := context.WithCancel(ctx)
	if r.Signals == nil {
		return stepCtx, cancel
	}
	stop := context.AfterFunc(r.Signals.Context(), cancel)
	return stepCtx, func() {
		stop()
		cancel()
	}
}

// finish converts the end of input into a clean exit.
func (r *Runner) finish(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, context.Canceled), ctx.Err() != nil:
		return nil
	case r.Signals != nil && r.Signals.Context().Err() != nil:
		return nil
	}
	return err
}

func (r *Runner) say(ctx context.Context, msg string) {
	if err := r.Handler.SystemOutput(ctx, msg); err != nil {
		r.Logger.Debug("system output failed", "err", err)
	}
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrBusy):
		return "아직 이야기가 끝나지 않았어요. 잠시만 기다려 주세요."
	case errors.Is(err, domain.ErrInvalidOption):
		return "목록에 있는 번호나 항목을 골라 주세요."
	case errors.Is(err, domain.ErrInvalidTransition):
		return "지금은 할 수 없는 동작이에요."
	case errors.Is(err, domain.ErrNoResult):
		return "운세를 본 다음에 할 수 있어요."
	case errors.Is(err, ErrUnknownCommand):
		return fmt.Sprintf("알 수 없는 명령이에요. %s 로 명령을 확인하세요.", CommandHelp)
	case errors.Is(err, ErrInputTooLarge):
		return "입력이 너무 길어요. 조금 줄여 주세요."
	case errors.Is(err, ErrInvalidUTF8):
		return "읽을 수 없는 문자가 있어요. 다시 입력해 주세요."
	case errors.Is(err, talisman.ErrArtifactsDisabled):
		return "부적 생성이 설정되어 있지 않아요."
	case errors.Is(err, talisman.ErrSaveDisabled):
		return "상담 기록 저장이 설정되어 있지 않아요."
	case errors.Is(err, talisman.ErrJobInFlight):
		return "부적을 아직 그리고 있어요."
	case errors.Is(err, talisman.ErrArtifactDone):
		return "이미 부적을 만들었어요."
	}
	return fmt.Sprintf("문제가 생겼어요: %v", err)
}

func helpText(p Prompt) string {
	var b strings.Builder
	b.WriteString("번호나 항목 이름으로 답해 주세요.")
	if p.FreeText {
		b.WriteString(" 고민을 직접 적어도 좋아요.")
	}
	b.WriteString("\n")
	b.WriteString(CommandTalisman + "  부적 만들기\n")
	b.WriteString(CommandSave + "      상담 기록 저장\n")
	b.WriteString(CommandRestart + "   처음으로\n")
	b.WriteString(CommandHelp + "      도움말\n")
	b.WriteString(CommandQuit + "      끝내기")
	return b.String()
}
