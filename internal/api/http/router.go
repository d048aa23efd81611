package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/accio/servicemeow/internal/api/http/handlers"
	"github.com/accio/servicemeow/internal/auth"
)

// APIPrefix is the mount point of the versioned API.
const APIPrefix = "/api/v1"

// EditorImagesPath is the public URL prefix of editor images.
const EditorImagesPath = APIPrefix + "/tickets/images"

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	APIKeys        *handlers.APIKeysHandler
	Tickets        *handlers.TicketsHandler
	TicketChildren *handlers.TicketChildrenHandler
	Groups         *handlers.GroupsHandler
	SLAConfig      *handlers.SLAConfigHandler
	Dashboard      *handlers.DashboardHandler
	System         *handlers.SystemHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group(APIPrefix)

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)

	api.Get("/system/info", cfg.System.Info)

	// Editor images are loaded by <img> tags and authenticate with the refresh cookie.
	api.Get("/tickets/images/:filename", cfg.TicketChildren.ServeImage)

	protected := api.Group("", cfg.AuthMiddleware.Handle)

	users := protected.Group("/users")
	users.Get("/me", cfg.Users.Me)
	users.Post("/me/password", cfg.Users.ChangePassword)
	users.Get("/", cfg.Users.List)
	users.Post("/", auth.RequireAdmin(), cfg.Users.Create)
	users.Get("/:id", cfg.Users.Get)
	users.Patch("/:id", auth.RequireAdmin(), cfg.Users.Update)

	keys := protected.Group("/api-keys")
	keys.Post("/", cfg.APIKeys.Create)
	keys.Get("/", cfg.APIKeys.List)
	keys.Delete("/:id", cfg.APIKeys.Revoke)

	// Static segments are registered ahead of /:id so they are not captured as ticket ids.
	tickets := protected.Group("/tickets")
	tickets.Post("/images", cfg.TicketChildren.UploadImage)
	tickets.Get("/by-number/:number", cfg.Tickets.GetByNumber)
	tickets.Get("/mine", cfg.Tickets.Mine)
	tickets.Post("/bulk-update", cfg.Tickets.BulkUpdate)
	tickets.Get("/attachments/:attachmentId/download", cfg.TicketChildren.DownloadAttachment)
	tickets.Get("/attachments/:attachmentId", cfg.TicketChildren.GetAttachment)
	tickets.Delete("/attachments/:attachmentId", cfg.TicketChildren.DeleteAttachment)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", cfg.Tickets.Update)
	tickets.Delete("/:id", cfg.Tickets.Delete)
	tickets.Post("/:id/resolve", cfg.Tickets.Resolve)
	tickets.Get("/:id/audit-log", cfg.Tickets.AuditLog)
	tickets.Get("/:id/notes", cfg.TicketChildren.ListNotes)
	tickets.Post("/:id/notes", cfg.TicketChildren.AddNote)
	tickets.Patch("/:id/notes/:noteId", cfg.TicketChildren.EditNote)
	tickets.Get("/:id/attachments", cfg.TicketChildren.ListAttachments)
	tickets.Post("/:id/attachments", cfg.TicketChildren.UploadAttachment)

	groups := protected.Group("/groups")
	groups.Get("/", cfg.Groups.List)
	groups.Post("/", auth.RequireManager(), cfg.Groups.Create)
	groups.Get("/:id", cfg.Groups.Get)
	groups.Patch("/:id", auth.RequireManager(), cfg.Groups.Update)
	groups.Post("/:id/members", auth.RequireManager(), cfg.Groups.AddMember)
	groups.Delete("/:id/members/:userId", auth.RequireManager(), cfg.Groups.RemoveMember)

	slaConfig := protected.Group("/sla-config")
	slaConfig.Get("/", cfg.SLAConfig.List)
	slaConfig.Patch("/", auth.RequireAdmin(), cfg.SLAConfig.Update)

	dashboard := protected.Group("/dashboard")
	dashboard.Get("/summary", cfg.Dashboard.Summary)
	dashboard.Get("/sla", cfg.Dashboard.SLAMetrics)
	dashboard.Get("/activity", cfg.Dashboard.Activity)
}
