package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/accio/servicemeow/internal/config"
	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/repository"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

// SLAConfigService manages per-priority SLA targets. Changes only affect tickets created afterwards.
type SLAConfigService struct {
	repo   repository.SLAConfigRepository
	tx     Transactor
	logger *zap.Logger
}

// NewSLAConfigService constructs the service.
func NewSLAConfigService(repo repository.SLAConfigRepository, tx Transactor, logger *zap.Logger) *SLAConfigService {
	return &SLAConfigService{repo: repo, tx: tx, logger: loggerOrNop(logger).Named("sla_config")}
}

// List returns targets ordered critical, high, medium, low.
func (s *SLAConfigService) List(ctx context.Context) ([]domain.SlaConfig, error) {
	return s.repo.List(ctx)
}

// BulkUpsert writes every row in one transaction and returns the resulting table.
func (s *SLAConfigService) BulkUpsert(ctx context.Context, configs []domain.SlaConfig) ([]domain.SlaConfig, error) {
	for _, cfg := range configs {
		if !cfg.Priority.IsValid() {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(cfg.Priority)})
		}
		if cfg.TargetAssignMinutes < 0 || cfg.TargetResolveMinutes < 0 {
			return nil, apperrors.NewValidationError("targets must not be negative", map[string]any{"priority": string(cfg.Priority)})
		}
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for i := range configs {
			if err := s.repo.Upsert(ctx, &configs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// SeedDefaults inserts the configured targets for priorities that have no row yet.
func (s *SLAConfigService) SeedDefaults(ctx context.Context, defaults config.SLAConfig) (int, error) {
	targets := defaults.Defaults()
	inserted := 0
	for _, priority := range domain.TicketPriorities {
		target := targets[priority.String()]
		ok, err := s.repo.InsertIfMissing(ctx, &domain.SlaConfig{
			Priority:             priority,
			TargetAssignMinutes:  target.AssignMinutes,
			TargetResolveMinutes: target.ResolveMinutes,
		})
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
			s.logger.Info("sla target seeded",
				zap.String("priority", priority.String()),
				zap.Int("assign_minutes", target.AssignMinutes),
				zap.Int("resolve_minutes", target.ResolveMinutes))
		}
	}
	return inserted, nil
}
