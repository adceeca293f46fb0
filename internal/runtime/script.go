package runtime

import (
	"fmt"

	"github.com/aretw0/talisman/pkg/domain"
)

// welcome returns the narration played when a cycle begins.
func welcome(p domain.Profile) []string {
	greeting := "안녕하세요, 오늘의 운세를 봐 드릴게요."
	if p.Name != "" {
		greeting = fmt.Sprintf("%s님, 안녕하세요. 오늘의 운세를 봐 드릴게요.", p.Name)
	}
	return []string{
		greeting,
		"요즘 마음에 걸리는 고민이 있으신가요?",
		"아래에서 고민의 종류를 골라 주세요. 원하는 항목이 없다면 직접 입력하셔도 좋아요.",
	}
}

func ackCategory(category string) []string {
	return []string{
		fmt.Sprintf("%s에 관한 고민이시군요.", category),
		"조금 더 구체적으로 알려 주시겠어요?",
	}
}

func ackTopic(topic string) []string {
	return []string{fmt.Sprintf("%s, 그렇군요. 어떤 부분이 가장 신경 쓰이세요?", topic)}
}

func ackDetail(detail string) []string {
	return []string{fmt.Sprintf("%s 때문에 마음이 쓰이시는군요. 무엇이 가장 궁금하세요?", detail)}
}

const (
	directInputPrompt = "고민을 자유롭게 적어 주세요. 한 문장이면 충분해요."
	readingIntro      = "좋아요. 지금부터 운세를 살펴볼게요."
	apology           = "죄송해요, 지금은 운세를 불러오지 못했어요. 잠시 후 처음부터 다시 시도해 주세요."

	artifactWorking   = "당신만을 위한 부적을 그리고 있어요. 조금만 기다려 주세요."
	artifactSucceeded = "부적이 완성되었어요. 소중히 간직하세요."
	artifactFailed    = "부적을 그리는 중에 문제가 생겼어요. 다시 시도해 주세요."
	artifactTimedOut  = "부적이 너무 오래 걸리고 있어요. 잠시 후 다시 시도해 주세요."
)
