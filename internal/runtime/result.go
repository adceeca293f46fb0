package runtime

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/talisman/internal/sequencer"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/aretw0/talisman/pkg/ports"
)

// ResultFlourish decorates the result paragraph.
const ResultFlourish = "🔮"

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// SplitParagraphs splits raw inference text on blank lines into trimmed, non-empty paragraphs.
func SplitParagraphs(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	var out []string
	for _, p := range paragraphBreak.Split(raw, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resultDrafts turns paragraphs into system drafts, flagging and decorating the last one.
func resultDrafts(paragraphs []string) []sequencer.Draft {
	drafts := make([]sequencer.Draft, len(paragraphs))
	for i, p := range paragraphs {
		drafts[i] = sequencer.Draft{Sender: domain.SenderSystem, Text: p}
	}
	if n := len(drafts); n > 0 {
		drafts[n-1].IsResult = true
		drafts[n-1].Text += "\n\n" + ResultFlourish
	}
	return drafts
}

// runResult asks for the fortune and delivers it paragraph by paragraph. Inference
// failures resolve the held placeholder to an apology and are not returned.
func (c *Conversation) runResult(ctx context.Context, ev Event, st domain.DialogueState) error {
	if err := c.narrate(ctx, readingIntro); err != nil {
		return err
	}

	hold, err := c.seq.Hold(ctx, domain.SenderSystem)
	if err != nil {
		return err
	}

	start := c.now()
	paragraphs, err := c.infer(ctx, st)
	if c.hooks.OnInference != nil {
		c.hooks.OnInference(ctx, &domain.InferenceEvent{
			SessionID:  c.id,
			FreeText:   st.FreeText != "",
			Paragraphs: len(paragraphs),
			Duration:   c.now().Sub(start),
			Err:        err,
		})
	}

	next := st.Clone()
	next.Step = domain.StepFortuneResult
	next.Offered = []string{OptionRestart}

	if err != nil {
		c.logger.Error("inference failed", "session_id", c.id, "err", err)
		_, rerr := hold.Resolve(ctx, sequencer.Draft{Sender: domain.SenderSystem, Text: apology}, c.deliverOpts())
		c.advance(ctx, ev, next)
		return rerr
	}

	drafts := resultDrafts(paragraphs)
	if _, err := hold.Resolve(ctx, drafts[0], c.deliverOpts()); err != nil {
		return err
	}
	for _, d := range drafts[1:] {
		if _, err := c.seq.Deliver(ctx, d, c.deliverOpts()); err != nil {
			return err
		}
	}
	c.advance(ctx, ev, next)
	return nil
}

func (c *Conversation) infer(ctx context.Context, st domain.DialogueState) ([]string, error) {
	if c.inference == nil {
		return nil, fmt.Errorf("no inference backend configured")
	}

	concern := ports.ConcernContext{Text: st.ConcernText}
	if st.FreeText != "" {
		concern.FreeText = st.FreeText
	} else {
		concern.Path = st.Path.Segments()
	}

	c.mu.Lock()
	profile := c.profile
	c.mu.Unlock()

	inferCtx := ctx
	if c.inferTimeout > 0 {
		var cancel context.CancelFunc
		inferCtx, cancel = context.WithTimeout(ctx, c.inferTimeout)
		defer cancel()
	}

	raw, err := c.inference.Infer(inferCtx, ports.InferenceRequest{Concern: concern, Profile: profile})
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	paragraphs := SplitParagraphs(raw)
	if len(paragraphs) == 0 {
		return nil, ErrEmptyFortune
	}
	return paragraphs, nil
}
