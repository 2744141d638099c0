package infra

import (
	"context"
	"errors"

	"ip-api/middleware/ratelimit/domain"
)

// MultiStatsStore repassa cada evento para todos os stores (ex: memória + Redis).
// Um store com erro não impede os outros de gravar.
type MultiStatsStore []domain.StatsStore

func (m MultiStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
