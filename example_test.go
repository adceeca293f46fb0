package talisman_test

import (
	"context"
	"fmt"

	"github.com/aretw0/talisman"
	"github.com/aretw0/talisman/pkg/adapters/canned"
	"github.com/aretw0/talisman/pkg/domain"
)

func Example() {
	eng, err := talisman.New(
		talisman.WithInference(canned.NewInference()),
		talisman.WithInstantDelivery(),
	)
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	conv, err := eng.Start(ctx, "example", domain.Profile{Name: "지수"})
	if err != nil {
		panic(err)
	}
	defer conv.Close()

	for _, opt := range []string{"연애", "시작 단계", "짝사랑", "언제 고백할지"} {
		if err := conv.Handle(ctx, talisman.Select(opt)); err != nil {
			panic(err)
		}
	}

	st := conv.State()
	fmt.Println(st.Step)
	fmt.Println(st.ConcernText)
	fmt.Println(st.Offered)
	// Output:
	// fortune_result
	// 연애 > 시작 단계 > 짝사랑 > 언제 고백할지
	// [처음으로]
}
