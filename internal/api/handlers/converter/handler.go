package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/jpg-converter/internal/api/respond"
	"github.com/aliskhannn/jpg-converter/internal/model"
	"github.com/aliskhannn/jpg-converter/internal/preview"
	"github.com/aliskhannn/jpg-converter/internal/processor"
	"github.com/aliskhannn/jpg-converter/internal/queue"
	convertersvc "github.com/aliskhannn/jpg-converter/internal/service/converter"
)

// service defines the interface for conversion session operations.
type service interface {
	Mode() model.Mode
	SetMode(mode model.Mode) error
	AddFiles(files []model.SourceFile) ([]model.QueueItem, int, error)
	Items() []model.QueueItem
	Remove(id uuid.UUID) error
	Clear() error
	Progress() model.ProgressState
	Preview(id uuid.UUID) (preview.Resource, error)
	Export(ctx context.Context, deliver convertersvc.DeliverFunc) (model.Archive, error)
}

// Handler provides HTTP handlers for the conversion session endpoints.
type Handler struct {
	service        service
	maxUploadBytes int64
}

// NewHandler creates a new Handler with the given service. Uploads larger
// than maxUploadBytes are rejected.
func NewHandler(s service, maxUploadBytes int64) *Handler {
	return &Handler{service: s, maxUploadBytes: maxUploadBytes}
}

// ItemResponse is the listing representation of a queued file.
type ItemResponse struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Size        int64        `json:"size"`
	SizeHuman   string       `json:"size_human"`
	ContentType string       `json:"content_type,omitempty"`
	Status      model.Status `json:"status"`
	AddedAt     time.Time    `json:"added_at"`
}

// UploadResponse reports the outcome of an upload.
type UploadResponse struct {
	Added    []ItemResponse `json:"added"`
	Rejected int            `json:"rejected"`
}

// ModeRequest is the body of a mode change.
type ModeRequest struct {
	Mode string `json:"mode" binding:"required,oneof=svg heic"`
}

// Upload accepts the files of the multipart field "files". Files that do
// not match the active mode are dropped and only counted.
func (h *Handler) Upload(c *ginext.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	if err := c.Request.ParseMultipartForm(h.maxUploadBytes); err != nil {
		zlog.Logger.Err(err).Msg("failed to parse multipart form")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("parse multipart form failed: %v", err))
		return
	}

	headers := c.Request.MultipartForm.File["files"]
	if len(headers) == 0 {
		zlog.Logger.Warn().Msg("no files provided")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("files field is required"))
		return
	}

	files := make([]model.SourceFile, 0, len(headers))
	for _, fh := range headers {
		f, err := readFile(fh)
		if err != nil {
			zlog.Logger.Err(err).Str("name", fh.Filename).Msg("failed to read uploaded file")
			respond.Fail(c, http.StatusBadRequest, fmt.Errorf("failed to read %s", fh.Filename))
			return
		}
		files = append(files, f)
	}

	added, rejected, err := h.service.AddFiles(files)
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to add files")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to add files: %v", err))
		return
	}

	zlog.Logger.Info().
		Int("added", len(added)).
		Int("rejected", rejected).
		Msg("files uploaded")

	respond.Created(c, UploadResponse{Added: toResponses(added), Rejected: rejected})
}

// List returns the queued files in processing order.
func (h *Handler) List(c *ginext.Context) {
	respond.OK(c, toResponses(h.service.Items()))
}

// Remove removes one file from the queue.
func (h *Handler) Remove(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Remove(id); err != nil {
		if errors.Is(err, queue.ErrItemNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("item not found"))
			return
		}

		zlog.Logger.Err(err).Msg("failed to remove item")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to remove item: %w", err))
		return
	}

	c.Status(http.StatusNoContent)
}

// Clear empties the queue.
func (h *Handler) Clear(c *ginext.Context) {
	if err := h.service.Clear(); err != nil {
		if errors.Is(err, convertersvc.ErrExportInProgress) {
			respond.Fail(c, http.StatusConflict, err)
			return
		}

		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to clear queue: %w", err))
		return
	}

	c.Status(http.StatusNoContent)
}

// Preview serves the preview image of a queued file.
func (h *Handler) Preview(c *ginext.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	res, err := h.service.Preview(id)
	if err != nil {
		if errors.Is(err, queue.ErrItemNotFound) || errors.Is(err, convertersvc.ErrPreviewNotFound) {
			respond.Fail(c, http.StatusNotFound, fmt.Errorf("preview not found"))
			return
		}

		zlog.Logger.Err(err).Msg("failed to get preview")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to get preview: %v", err))
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.Data(c, http.StatusOK, res.ContentType, res.Data)
}

// GetMode returns the active conversion mode.
func (h *Handler) GetMode(c *ginext.Context) {
	respond.OK(c, map[string]string{"mode": h.service.Mode().String()})
}

// SetMode switches the conversion mode. The queue must be empty.
func (h *Handler) SetMode(c *ginext.Context) {
	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid request: %v", err))
		return
	}

	mode, err := model.ParseMode(req.Mode)
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	if err := h.service.SetMode(mode); err != nil {
		switch {
		case errors.Is(err, convertersvc.ErrQueueNotEmpty):
			respond.Fail(c, http.StatusConflict, fmt.Errorf("clear the queue before switching mode"))
		case errors.Is(err, processor.ErrUnknownMode):
			respond.Fail(c, http.StatusBadRequest, err)
		default:
			respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to set mode: %v", err))
		}
		return
	}

	respond.OK(c, map[string]string{"mode": mode.String()})
}

// Progress returns the state of the current or last export.
func (h *Handler) Progress(c *ginext.Context) {
	respond.OK(c, h.service.Progress())
}

// Export converts the queue and streams the archive as an attachment.
func (h *Handler) Export(c *ginext.Context) {
	_, err := h.service.Export(c.Request.Context(), func(a model.Archive) error {
		return respond.Attachment(c, a.Name, "application/zip", a.Data)
	})
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, convertersvc.ErrQueueEmpty):
		c.Status(http.StatusNoContent)
	case errors.Is(err, convertersvc.ErrExportInProgress):
		respond.Fail(c, http.StatusConflict, err)
	case c.Writer.Written():
		// Headers are already out; the client sees a truncated download.
		zlog.Logger.Err(err).Msg("archive delivery interrupted")
	default:
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("export failed: %v", err))
	}
}

func parseID(c *ginext.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		zlog.Logger.Err(err).Msg("failed to parse id")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("invalid id: %v", err))
		return uuid.Nil, false
	}
	return id, true
}

func readFile(fh *multipart.FileHeader) (model.SourceFile, error) {
	f, err := fh.Open()
	if err != nil {
		return model.SourceFile{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return model.SourceFile{}, fmt.Errorf("read: %w", err)
	}

	return model.SourceFile{
		Name:        fh.Filename,
		Size:        int64(len(data)),
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func toResponses(items []model.QueueItem) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, ItemResponse{
			ID:          it.ID,
			Name:        it.DisplayName,
			Size:        it.Source.Size,
			SizeHuman:   humanize.Bytes(uint64(it.Source.Size)),
			ContentType: it.Source.ContentType,
			Status:      it.Status,
			AddedAt:     it.AddedAt,
		})
	}
	return out
}
