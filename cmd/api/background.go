package main

import (
	"context"
	"time"
)

// startBackgroundJobs runs the reconciler and the rate limiter sweeper until ctx
// is cancelled.
func (app *application) startBackgroundJobs(ctx context.Context) {
	if app.reconciler != nil {
		go app.reconciler.Run(ctx)
		app.logger.Infow("reconciler started", "interval", app.config.ReconcileInterval.String())
	}

	if sw, ok := app.rateLimiter.(interface{ RunSweeper(<-chan struct{}) }); ok {
		go sw.RunSweeper(ctx.Done())
	}

	go func() {
		<-ctx.Done()
		app.logger.Infof("background jobs stopped at %s", time.Now().Format(time.RFC1123))
	}()
}
