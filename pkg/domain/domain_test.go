package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcernPath(t *testing.T) {
	full := ConcernPath{Category: "연애", Topic: "시작 단계", Detail: "짝사랑", Leaf: "언제 고백할지"}
	assert.True(t, full.Complete())
	assert.Equal(t, "연애 > 시작 단계 > 짝사랑 > 언제 고백할지", full.Text())

	partial := ConcernPath{Category: "직장", Topic: "이직"}
	assert.False(t, partial.Complete())
	assert.Equal(t, []string{"직장", "이직"}, partial.Segments())
	assert.Equal(t, "직장 > 이직", partial.Text())

	assert.Empty(t, ConcernPath{}.Segments())
	assert.Equal(t, "", ConcernPath{}.Text())
}

func TestDialogueState_OffersAndClone(t *testing.T) {
	s := NewDialogueState()
	assert.Equal(t, StepInitial, s.Step)
	assert.False(t, s.Offers("연애"))

	s.Offered = []string{"연애", "직장"}
	assert.True(t, s.Offers("직장"))
	assert.False(t, s.Offers("건강"))

	c := s.Clone()
	c.Offered[0] = "바뀜"
	assert.Equal(t, "연애", s.Offered[0], "clone must not share the offered slice")
}

func TestResultTurn(t *testing.T) {
	_, ok := ResultTurn(nil)
	assert.False(t, ok)

	transcript := []Turn{
		{ID: "1", Sender: SenderSystem, Text: "안녕하세요"},
		{ID: "2", Sender: SenderSystem, Text: "첫 문단"},
		{ID: "3", Sender: SenderSystem, Text: "마지막 문단", IsResult: true},
		{ID: "4", Sender: SenderSystem, Text: "처음으로 돌아갈까요?"},
	}
	got, ok := ResultTurn(transcript)
	assert.True(t, ok)
	assert.Equal(t, "3", got.ID)
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobPending.Terminal())
	assert.True(t, JobSucceeded.Terminal())
	assert.True(t, JobFailed.Terminal())
}
