package handlers

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/accio/servicemeow/internal/service"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

// RefResolver turns a name or UUID into an id.
type RefResolver interface {
	ResolveRef(ctx context.Context, ref string) (uuid.UUID, error)
}

// TicketResolver turns a UUID or ticket number into a ticket id.
type TicketResolver interface {
	ResolveTicketRef(ctx context.Context, ref string) (uuid.UUID, error)
}

func respond(c *fiber.Ctx, status int, payload any) error {
	return c.Status(status).JSON(fiber.Map{"data": payload})
}

func pathUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	raw := c.Params(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError("invalid id", map[string]any{name: raw})
	}
	return id, nil
}

func ticketIDParam(c *fiber.Ctx, tickets TicketResolver) (uuid.UUID, error) {
	return tickets.ResolveTicketRef(c.UserContext(), c.Params("id"))
}

// pageParams reads page and page_size. Zero page_size lets the service apply its default.
func pageParams(c *fiber.Ctx, maxSize int) (service.PageRequest, error) {
	req := service.PageRequest{Page: 1}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return req, apperrors.NewValidationError("page must be a positive integer", map[string]any{"page": raw})
		}
		req.Page = page
	}
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > maxSize {
			return req, apperrors.NewValidationError("page_size out of range", map[string]any{"page_size": raw, "max": maxSize})
		}
		req.PageSize = size
	}
	return req, nil
}

func optionalRef(c *fiber.Ctx, key string, resolver RefResolver) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	id, err := resolver.ResolveRef(c.UserContext(), raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func optionalBool(c *fiber.Ctx, key string) (bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.NewValidationError("invalid boolean", map[string]any{key: raw})
	}
	return v, nil
}

// formFile reads the multipart part named "file".
func formFile(c *fiber.Ctx) (string, []byte, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, apperrors.NewBadRequest("file is required", nil)
	}
	file, err := header.Open()
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, content, nil
}
