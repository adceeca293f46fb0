package main

import (
	"context"
	"time"

	"github.com/aretw0/talisman/internal/cli"
)

// closeTimeout bounds the final session flush of short-lived commands.
const closeTimeout = 5 * time.Second

// openApp builds the host from the loaded configuration. The returned func flushes
// and releases it.
func openApp(opts ...cli.AppOption) (*cli.App, func(), error) {
	app, err := cli.NewApp(cfg, logger, opts...)
	if err != nil {
		return nil, nil, err
	}
	return app, func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := app.Close(ctx); err != nil {
			logger.Warn("shutdown incomplete", "err", err)
		}
	}, nil
}
