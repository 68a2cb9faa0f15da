package files

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/medportal/medportal/internal/i18n"
	"github.com/medportal/medportal/internal/rbac"
	"github.com/medportal/medportal/internal/view"
)

const (
	formField      = "files"
	pdfContentType = "application/pdf"
	// multipart parts above this size spill to temporary files
	memoryLimit = 8 << 20
)

// Handler serves the examination file upload page.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	render   *view.Renderer
	guard    rbac.Guard
	maxBytes int64
}

// NewHandler builds Handler instance. maxBytes caps the request body.
func NewHandler(logger *slog.Logger, service *Service, render *view.Renderer, guard rbac.Guard, maxBytes int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &Handler{logger: logger, service: service, render: render, guard: guard, maxBytes: maxBytes}
}

// MountRoutes registers file routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require())
		r.Get("/", h.showForm)
		r.Post("/", h.upload)
	})
}

type pageData struct {
	URLs   []string
	Errors view.FormErrors
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "pages/files.html", "Examination files", pageData{})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		var tooLarge *http.MaxBytesError
		status := http.StatusBadRequest
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.fail(w, r, status, "Upload failed.")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[formField]
	if len(headers) == 0 {
		h.fail(w, r, http.StatusBadRequest, "Please choose at least one PDF file.")
		return
	}
	docs := make([]Document, 0, len(headers))
	for _, fh := range headers {
		ok, err := isPDF(fh)
		if err != nil || !ok {
			h.fail(w, r, http.StatusUnsupportedMediaType, "Only PDF files are accepted.")
			return
		}
		docs = append(docs, document(fh))
	}

	urls, err := h.service.Upload(r.Context(), docs)
	if err != nil {
		if h.render.SessionExpired(w, r, err) {
			return
		}
		h.logger.Error("upload files", slog.Int("count", len(docs)), slog.Any("error", err))
		h.render.Render(w, r, http.StatusBadGateway, "pages/files.html", "Examination files", pageData{
			Errors: view.FormErrors{"general": h.render.Message(r, err, "Upload failed.")},
		})
		return
	}
	h.render.Render(w, r, http.StatusOK, "pages/files.html", "Examination files", pageData{URLs: urls})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render.Render(w, r, status, "pages/files.html", "Examination files", pageData{
		Errors: view.FormErrors{"general": i18n.T(r.Context(), message)},
	})
}

func document(fh *multipart.FileHeader) Document {
	return Document{
		Name: filepath.Base(fh.Filename),
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// isPDF checks the extension and sniffs the leading bytes.
func isPDF(fh *multipart.FileHeader) (bool, error) {
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		return false, nil
	}
	f, err := fh.Open()
	if err != nil {
		return false, err
	}
	defer f.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return http.DetectContentType(head[:n]) == pdfContentType, nil
}
