package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/accio/servicemeow/internal/api/dto"
	"github.com/accio/servicemeow/internal/auth"
	"github.com/accio/servicemeow/internal/domain"
	"github.com/accio/servicemeow/internal/storage"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

// RefreshCookie holds the refresh token set at login.
const RefreshCookie = "refresh_token"

// NoteAPI manages ticket notes.
type NoteAPI interface {
	Add(ctx context.Context, actor domain.Actor, ticketID uuid.UUID, content string, isInternal bool) (*domain.TicketNote, error)
	Edit(ctx context.Context, ticketID, noteID uuid.UUID, content string) (*domain.TicketNote, error)
	List(ctx context.Context, ticketID uuid.UUID) ([]domain.TicketNote, error)
}

// AttachmentAPI manages ticket files and editor images.
type AttachmentAPI interface {
	Upload(ctx context.Context, actor domain.Actor, ticketID uuid.UUID, originalName string, data []byte) (*domain.Attachment, error)
	List(ctx context.Context, ticketID uuid.UUID) ([]domain.Attachment, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Attachment, error)
	Download(ctx context.Context, id uuid.UUID) (*domain.Attachment, []byte, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	UploadEditorImage(originalName string, data []byte) (*storage.StoredFile, error)
	ReadEditorImage(filename string) ([]byte, string, error)
}

// TicketChildrenHandler serves notes, attachments and editor images.
type TicketChildrenHandler struct {
	tickets     TicketResolver
	notes       NoteAPI
	attachments AttachmentAPI
	tokens      *auth.TokenManager
	imageURL    string
}

// NewTicketChildrenHandler constructs handler. imageURL is the public prefix editor images are served under.
func NewTicketChildrenHandler(tickets TicketResolver, notes NoteAPI, attachments AttachmentAPI, tokens *auth.TokenManager, imageURL string) *TicketChildrenHandler {
	return &TicketChildrenHandler{tickets: tickets, notes: notes, attachments: attachments, tokens: tokens, imageURL: imageURL}
}

// AddNote handles POST /tickets/:id/notes.
func (h *TicketChildrenHandler) AddNote(c *fiber.Ctx) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	ticketID, err := ticketIDParam(c, h.tickets)
	if err != nil {
		return err
	}
	var req dto.CreateNoteRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}

	note, err := h.notes.Add(c.UserContext(), actor, ticketID, req.Content, req.IsInternal)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewNoteResponse(note))
}

// ListNotes handles GET /tickets/:id/notes.
func (h *TicketChildrenHandler) ListNotes(c *fiber.Ctx) error {
	ticketID, err := ticketIDParam(c, h.tickets)
	if err != nil {
		return err
	}
	notes, err := h.notes.List(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewNoteResponses(notes))
}

// EditNote handles PATCH /tickets/:id/notes/:noteId.
func (h *TicketChildrenHandler) EditNote(c *fiber.Ctx) error {
	ticketID, err := ticketIDParam(c, h.tickets)
	if err != nil {
		return err
	}
	noteID, err := pathUUID(c, "noteId")
	if err != nil {
		return err
	}
	var req dto.UpdateNoteRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}

	note, err := h.notes.Edit(c.UserContext(), ticketID, noteID, req.Content)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewNoteResponse(note))
}

// UploadAttachment handles multipart POST /tickets/:id/attachments.
func (h *TicketChildrenHandler) UploadAttachment(c *fiber.Ctx) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	ticketID, err := ticketIDParam(c, h.tickets)
	if err != nil {
		return err
	}
	name, content, err := formFile(c)
	if err != nil {
		return err
	}

	attachment, err := h.attachments.Upload(c.UserContext(), actor, ticketID, name, content)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewAttachmentResponse(attachment))
}

// ListAttachments handles GET /tickets/:id/attachments.
func (h *TicketChildrenHandler) ListAttachments(c *fiber.Ctx) error {
	ticketID, err := ticketIDParam(c, h.tickets)
	if err != nil {
		return err
	}
	attachments, err := h.attachments.List(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewAttachmentResponses(attachments))
}

// GetAttachment handles GET /tickets/attachments/:attachmentId.
func (h *TicketChildrenHandler) GetAttachment(c *fiber.Ctx) error {
	id, err := pathUUID(c, "attachmentId")
	if err != nil {
		return err
	}
	attachment, err := h.attachments.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewAttachmentResponse(attachment))
}

// DownloadAttachment handles GET /tickets/attachments/:attachmentId/download.
func (h *TicketChildrenHandler) DownloadAttachment(c *fiber.Ctx) error {
	id, err := pathUUID(c, "attachmentId")
	if err != nil {
		return err
	}
	attachment, content, err := h.attachments.Download(c.UserContext(), id)
	if err != nil {
		return err
	}
	c.Attachment(attachment.OriginalFilename)
	c.Set(fiber.HeaderContentType, attachment.ContentType)
	return c.Send(content)
}

// DeleteAttachment handles DELETE /tickets/attachments/:attachmentId.
func (h *TicketChildrenHandler) DeleteAttachment(c *fiber.Ctx) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "attachmentId")
	if err != nil {
		return err
	}
	if err := h.attachments.Delete(c.UserContext(), actor, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UploadImage handles POST /tickets/images for the rich text editor.
func (h *TicketChildrenHandler) UploadImage(c *fiber.Ctx) error {
	if _, err := auth.MustActor(c); err != nil {
		return err
	}
	name, content, err := formFile(c)
	if err != nil {
		return err
	}
	stored, err := h.attachments.UploadEditorImage(name, content)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.EditorImageResponse{URL: h.imageURL + "/" + stored.Filename})
}

// ServeImage handles GET /tickets/images/:filename. Browsers load these from <img> tags,
// so the session is taken from the refresh token cookie instead of a bearer header.
func (h *TicketChildrenHandler) ServeImage(c *fiber.Ctx) error {
	token := c.Cookies(RefreshCookie)
	if token == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	if _, err := h.tokens.ParseToken(token, auth.TokenTypeRefresh); err != nil {
		return apperrors.NewUnauthorized("invalid or expired session")
	}

	content, contentType, err := h.attachments.ReadEditorImage(c.Params("filename"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(content)
}
