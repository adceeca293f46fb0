/*
Package talisman is a guided fortune-telling dialogue engine.

A Conversation walks the user through a fixed concern taxonomy (category, topic, detail,
option) or accepts a free-text concern, asks an inference backend for a fortune, and
delivers it paragraph by paragraph with simulated typing. After the result is shown the
user may request a talisman image, generated asynchronously by a polled job, and save the
consultation.

# Architecture

The engine follows a hexagonal layout. The dialogue, the message sequencer, the artifact
job manager and the recorder live in internal packages; backends and stores are ports
(pkg/ports) with adapters under pkg/adapters: remote HTTP clients, offline canned
backends, memory, sqlite, redis and file stores, plus HTTP and MCP hosts.

# Usage

	eng, err := talisman.New(
		talisman.WithInference(canned.NewInference()),
		talisman.WithArtifacts(canned.NewArtifacts()),
		talisman.WithConsultationStore(memory.NewConsultationStore()),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	conv, err := eng.Start(ctx, "", domain.Profile{Name: "지수"})
	if err != nil {
		log.Fatal(err)
	}
	defer conv.Close()

	for _, opt := range []string{"연애", "시작 단계", "짝사랑", "언제 고백할지"} {
		if err := conv.Handle(ctx, talisman.Select(opt)); err != nil {
			log.Fatal(err)
		}
	}

	for _, turn := range conv.Transcript() {
		fmt.Println(turn.Text)
	}

Events arriving while a turn is being typed are dropped with domain.ErrBusy; hosts are
expected to disable input while Snapshot().Typing is set.
*/
package talisman
