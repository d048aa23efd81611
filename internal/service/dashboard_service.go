package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/accio/servicemeow/internal/cache"
	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/repository"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

// SLAMetricsQuery narrows the MTTA/MTTR aggregates.
type SLAMetricsQuery struct {
	GroupID  *uuid.UUID
	Priority string
	DateFrom *time.Time
	DateTo   *time.Time
}

// DashboardService serves aggregate views over tickets and the audit trail.
type DashboardService struct {
	tickets repository.TicketRepository
	groups  repository.GroupRepository
	audit   *AuditService
	cache   cache.DashboardCache
	logger  *zap.Logger
}

// NewDashboardService constructs the service. A nil cache disables caching.
func NewDashboardService(tickets repository.TicketRepository, groups repository.GroupRepository, audit *AuditService, summaryCache cache.DashboardCache, logger *zap.Logger) *DashboardService {
	if summaryCache == nil {
		summaryCache = cache.NewRedisDashboardCache(nil, 0)
	}
	return &DashboardService{
		tickets: tickets,
		groups:  groups,
		audit:   audit,
		cache:   summaryCache,
		logger:  loggerOrNop(logger).Named("dashboard"),
	}
}

// Summary returns ticket counts, served from cache when available.
func (s *DashboardService) Summary(ctx context.Context) (*domain.DashboardSummary, error) {
	cached, hit, err := s.cache.GetSummary(ctx)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
	} else if hit {
		return cached, nil
	}

	summary, err := s.tickets.Summary(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetSummary(ctx, summary); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
	return summary, nil
}

// SLAMetrics returns mean time to assign and resolve for the matching tickets.
func (s *DashboardService) SLAMetrics(ctx context.Context, query SLAMetricsQuery) (*domain.SLAMetrics, error) {
	if query.DateFrom != nil && query.DateTo != nil && query.DateFrom.After(*query.DateTo) {
		return nil, apperrors.NewValidationError("date_from must not be after date_to", map[string]any{
			"date_from": query.DateFrom.Format(time.RFC3339),
			"date_to":   query.DateTo.Format(time.RFC3339),
		})
	}
	filter := repository.TicketMetricsFilter{
		GroupID:     query.GroupID,
		CreatedFrom: query.DateFrom,
		CreatedTo:   query.DateTo,
	}
	if query.Priority != "" {
		priority, err := domain.ParseTicketPriority(query.Priority)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error(), map[string]any{"priority": query.Priority})
		}
		filter.Priority = &priority
	}

	mtta, err := s.tickets.AverageAssignSeconds(ctx, filter)
	if err != nil {
		return nil, err
	}
	mttr, err := s.tickets.AverageResolveSeconds(ctx, filter)
	if err != nil {
		return nil, err
	}

	metrics := &domain.SLAMetrics{MTTASeconds: mtta, MTTRSeconds: mttr, Priority: filter.Priority}
	if query.GroupID != nil {
		group, err := s.groups.GetByID(ctx, *query.GroupID)
		switch {
		case err == nil:
			metrics.GroupName = strPtr(group.Name)
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, err
		}
	}
	return metrics, nil
}

// Activity returns the global audit feed.
func (s *DashboardService) Activity(ctx context.Context, req PageRequest) (Page[domain.AuditLogEntry], error) {
	return s.audit.ListActivity(ctx, req)
}
