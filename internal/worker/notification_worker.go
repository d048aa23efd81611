package worker

import (
	"go.uber.org/zap"

	"github.com/accio/servicemeow/internal/cache"
	"github.com/accio/servicemeow/internal/events"
	"github.com/accio/servicemeow/internal/service"
)

// StartEventSubscribers registers notification handlers and dashboard cache invalidation.
func StartEventSubscribers(dispatcher events.Dispatcher, notificationService *service.NotificationService, summaryCache cache.DashboardCache, logger *zap.Logger) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if dispatcher != nil && summaryCache != nil {
		cache.RegisterInvalidation(dispatcher, summaryCache, logger)
	}
}
