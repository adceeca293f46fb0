// Package canned provides deterministic offline backends. They are used by the CLI's
// offline mode, by the MCP server when no remote is configured, and in tests.
package canned

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/aretw0/talisman/pkg/ports"
)

var openings = []string{
	"지금 당신의 기운은 잔잔한 호수처럼 고요해요.",
	"오늘은 새벽 별처럼 맑은 기운이 함께하고 있어요.",
	"바람이 방향을 바꾸듯 흐름이 조금씩 달라지고 있어요.",
}

var advice = []string{
	"서두르기보다 한 걸음씩 나아가면 원하는 답에 가까워질 거예요.",
	"가까운 사람의 한마디에 뜻밖의 실마리가 숨어 있어요.",
	"작은 결심 하나가 큰 변화를 불러올 시기예요.",
}

var closings = []string{
	"머지않아 마음이 한결 가벼워지는 소식이 찾아올 거예요.",
	"당신이 믿는 만큼 좋은 결과가 따라올 거예요.",
	"지금의 고민은 곧 웃으며 떠올릴 추억이 될 거예요.",
}

// Inference writes a short three-paragraph fortune picked deterministically from the
// concern text.
type Inference struct{}

// NewInference returns the offline fortune teller.
func NewInference() *Inference {
	return &Inference{}
}

// Infer implements ports.InferenceBackend.
func (Inference) Infer(ctx context.Context, req ports.InferenceRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	concern := strings.TrimSpace(req.Concern.Text)
	if concern == "" {
		return "", fmt.Errorf("concern text is required")
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(concern))
	seed := int(h.Sum32())

	who := "당신"
	if req.Profile.Name != "" {
		who = req.Profile.Name + "님"
	}

	paragraphs := []string{
		fmt.Sprintf("%s의 고민, '%s'에 대해 살펴봤어요. %s", who, concern, openings[seed%len(openings)]),
		advice[(seed/7)%len(advice)],
		closings[(seed/13)%len(closings)],
	}
	return strings.Join(paragraphs, "\n\n"), nil
}
