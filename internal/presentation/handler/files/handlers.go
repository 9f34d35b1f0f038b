package files

import (
	"context"
	"errors"
	"net/http"

	"github.com/hilthontt/studyroom/internal/domain"
	"github.com/hilthontt/studyroom/internal/infrastructure/json"
	"github.com/hilthontt/studyroom/internal/infrastructure/logging"
)

const (
	formField = "upload"
	// multipart parts beyond this are spooled to disk by net/http.
	maxMemory = 8 << 20
)

type Sharer interface {
	Share(ctx context.Context, att *domain.Attachment) (domain.FileRef, error)
}

type Linker interface {
	DownloadURL(fileID string) string
}

type Handler struct {
	sharer   Sharer
	links    Linker
	maxBytes int64
	logger   logging.Logger
}

func NewHandler(sharer Sharer, links Linker, maxBytes int64, logger logging.Logger) *Handler {
	return &Handler{
		sharer:   sharer,
		links:    links,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// ShareFileHandler uploads the "upload" form file to the active room and
// announces it. A file that uploaded but could not be announced is still
// returned, with 409.
func (h *Handler) ShareFileHandler(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+maxMemory)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			json.WriteError(w, http.StatusRequestEntityTooLarge, json.CodeTooLarge, "The file exceeds the upload limit")
			return
		}
		json.WriteBadRequestError(w, "expected a multipart form with an upload field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(formField)
	if err != nil {
		json.WriteBadRequestError(w, "no file selected")
		return
	}
	defer file.Close()

	att := domain.NewAttachment(header.Filename, header.Size, file)
	if ct := header.Header.Get("Content-Type"); ct != "" {
		att.ContentType = ct
	}

	ref, err := h.sharer.Share(r.Context(), att)
	if err != nil {
		h.writeShareError(w, ref, err)
		return
	}

	json.Write(w, http.StatusCreated, h.response(ref, true))
}

func (h *Handler) writeShareError(w http.ResponseWriter, ref domain.FileRef, err error) {
	var uploadErr *domain.UploadError
	switch {
	case errors.Is(err, domain.ErrNoActiveRoom):
		json.WriteError(w, http.StatusConflict, json.CodeNotConnected, "Select a room before sharing a file")
	case errors.Is(err, domain.ErrNoAttachment):
		json.WriteBadRequestError(w, "no file selected")
	case errors.Is(err, domain.ErrAttachmentTooLarge):
		json.WriteError(w, http.StatusRequestEntityTooLarge, json.CodeTooLarge, "The file exceeds the upload limit")
	case errors.As(err, &uploadErr):
		json.WriteError(w, http.StatusBadGateway, json.CodeUploadFailed, "The file could not be uploaded")
	case ref.ID != "" && (errors.Is(err, domain.ErrNotReady) || errors.Is(err, domain.ErrStaleSession)):
		resp := h.response(ref, false)
		resp.Code = json.CodeNotConnected
		resp.Message = "The file was uploaded but the room was not notified"
		json.Write(w, http.StatusConflict, resp)
	default:
		h.logger.Error(logging.Transfer, logging.Upload, "unexpected share failure", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w)
	}
}

func (h *Handler) response(ref domain.FileRef, announced bool) shareFileResponse {
	return shareFileResponse{
		FileID:      ref.ID,
		FileName:    ref.Name,
		DownloadURL: h.links.DownloadURL(ref.ID),
		Announced:   announced,
	}
}
