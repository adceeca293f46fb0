package runner

import (
	"testing"

	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInput(t *testing.T) {
	selectPrompt := Prompt{Step: domain.StepDetailLevel1, Options: []string{"시작 단계", "연애 중"}}
	concernPrompt := Prompt{Step: domain.StepConcernSelect, Options: []string{"연애", "직접 입력하기"}, FreeText: true}

	tests := []struct {
		name    string
		line    string
		prompt  Prompt
		want    Action
		wantErr error
	}{
		{"number", "2", selectPrompt, Action{Kind: ActionEvent, Event: talisman.Select("연애 중")}, nil},
		{"label", "시작 단계", selectPrompt, Action{Kind: ActionEvent, Event: talisman.Select("시작 단계")}, nil},
		{"out of range", "3", selectPrompt, Action{}, domain.ErrInvalidOption},
		{"zero", "0", selectPrompt, Action{}, domain.ErrInvalidOption},
		{"unknown label", "건강", selectPrompt, Action{}, domain.ErrInvalidOption},
		{"free text", "잠이 안 와요", concernPrompt, Action{Kind: ActionEvent, Event: talisman.Text("잠이 안 와요")}, nil},
		{"number beyond options is text", "42", concernPrompt, Action{Kind: ActionEvent, Event: talisman.Text("42")}, nil},
		{"empty", "   ", selectPrompt, Action{}, domain.ErrEmptyInput},
		{"talisman", ":talisman", selectPrompt, Action{Kind: ActionArtifact}, nil},
		{"alias", ":S", selectPrompt, Action{Kind: ActionSave}, nil},
		{"restart", ":restart now", selectPrompt, Action{Kind: ActionEvent, Event: talisman.Restart()}, nil},
		{"quit", ":q", selectPrompt, Action{Kind: ActionQuit}, nil},
		{"help", ":help", selectPrompt, Action{Kind: ActionHelp}, nil},
		{"unknown command", ":dance", selectPrompt, Action{}, ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInput(tt.line, tt.prompt)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPromptFor(t *testing.T) {
	snap := &domain.Snapshot{
		State: domain.DialogueState{Step: domain.StepFortuneResult, Offered: []string{talisman.OptionRestart}},
		Affordances: domain.Affordances{
			CanGenerateArtifact: true,
			CanSave:             true,
			CanRestart:          true,
		},
	}
	p := PromptFor(snap)
	assert.False(t, p.FreeText)
	assert.Equal(t, []string{talisman.OptionRestart}, p.Options)
	assert.Equal(t, []string{CommandTalisman, CommandSave, CommandRestart, CommandHelp, CommandQuit}, p.Commands)

	snap.Affordances.ArtifactInFlight = true
	snap.Affordances.CanSave = false
	assert.Equal(t, []string{CommandRestart, CommandHelp, CommandQuit}, PromptFor(snap).Commands)

	snap.State = domain.DialogueState{Step: domain.StepDirectInput}
	assert.True(t, PromptFor(snap).FreeText)
}
