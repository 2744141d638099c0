package main

import (
	"context"
	"log/slog"
	"time"
)

type cleaner interface {
	Cleanup() int
}

// runJanitor limpa cache e limiter a cada `every` até o ctx acabar.
// Roda fora do caminho das requisições.
func runJanitor(ctx context.Context, every time.Duration, logger *slog.Logger, jobs map[string]cleaner) error {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			for name, job := range jobs {
				if removed := job.Cleanup(); removed > 0 {
					logger.Debug("cleanup", "job", name, "removed", removed)
				}
			}
		}
	}
}
