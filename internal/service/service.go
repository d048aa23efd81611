package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/accio/servicemeow/internal/events"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

// Transactor runs fn inside one database transaction carried by ctx.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock returns the current instant.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func clockOrDefault(clock Clock) Clock {
	if clock == nil {
		return systemClock
	}
	return clock
}

// Page is one slice of a paginated listing.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Pages    int `json:"pages"`
}

// NewPage computes the page count as ceil(total/pageSize), zero when empty.
func NewPage[T any](items []T, total, page, pageSize int) Page[T] {
	pages := 0
	if total > 0 && pageSize > 0 {
		pages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Page: page, PageSize: pageSize, Pages: pages}
}

// PageRequest is a 1-based page number and size.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the request into [1, maxSize], substituting defaults for zero values.
func (p PageRequest) Normalize(defaultSize, maxSize int) PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	return p
}

// Offset is (page-1)*page_size.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// notFound converts pgx.ErrNoRows into a NotFound error for resource.
func notFound(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return err
}

func strPtr(s string) *string { return &s }

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil && logger != nil {
		logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
