package domain

import "strings"

// Step names a state of the guided dialogue.
type Step string

const (
	StepInitial       Step = "initial"
	StepConcernSelect Step = "concern_select"
	StepDirectInput   Step = "direct_input"
	StepDetailLevel1  Step = "detail_level_1"
	StepDetailLevel2  Step = "detail_level_2"
	StepDetailLevel3  Step = "detail_level_3"
	StepFortuneResult Step = "fortune_result"
)

// PathSeparator joins the concern path segments into the concern text.
const PathSeparator = " > "

// ConcernPath holds the segments selected while walking the concern taxonomy.
type ConcernPath struct {
	Category string `json:"category,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Leaf     string `json:"leaf,omitempty"`
}

// Segments returns the non-empty segments in selection order.
func (p ConcernPath) Segments() []string {
	segs := make([]string, 0, 4)
	for _, s := range []string{p.Category, p.Topic, p.Detail, p.Leaf} {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Complete reports whether all four segments were selected.
func (p ConcernPath) Complete() bool {
	return p.Category != "" && p.Topic != "" && p.Detail != "" && p.Leaf != ""
}

// Text concatenates the selected segments.
func (p ConcernPath) Text() string {
	return strings.Join(p.Segments(), PathSeparator)
}

// DialogueState is the single live state of one conversation.
// It is mutated only by the dialogue state machine.
type DialogueState struct {
	Step        Step        `json:"step"`
	Path        ConcernPath `json:"path"`
	Offered     []string    `json:"offered,omitempty"`
	ConcernText string      `json:"concern_text,omitempty"`

	// FreeText is set when the concern came from the direct input branch.
	FreeText string `json:"free_text,omitempty"`
}

// NewDialogueState returns the initial state.
func NewDialogueState() DialogueState {
	return DialogueState{Step: StepInitial}
}

// Offers reports whether option is currently offered.
func (s DialogueState) Offers(option string) bool {
	for _, o := range s.Offered {
		if o == option {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with s.
func (s DialogueState) Clone() DialogueState {
	c := s
	c.Offered = append([]string(nil), s.Offered...)
	return c
}
