package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/accio/servicemeow/internal/api/dto"
	"github.com/accio/servicemeow/internal/domain"
)

// SystemHandler describes the deployment to unauthenticated clients.
type SystemHandler struct {
	serviceName string
	version     string
}

// NewSystemHandler returns a new handler instance.
func NewSystemHandler(serviceName, version string) *SystemHandler {
	return &SystemHandler{serviceName: serviceName, version: version}
}

// Info handles GET /system/info.
func (h *SystemHandler) Info(c *fiber.Ctx) error {
	return respond(c, http.StatusOK, dto.SystemInfoResponse{
		Service:            h.serviceName,
		Version:            h.version,
		Statuses:           domain.TicketStatuses,
		Priorities:         domain.TicketPriorities,
		Roles:              domain.UserRoles,
		TicketNumberFormat: domain.TicketNumberPrefix + "XXXX",
		MaxPageSize:        maxPageSize,
	})
}
