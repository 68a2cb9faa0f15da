// Package files forwards examination documents to the file service.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/shared"
)

// ErrNoFiles is returned when an upload carries no documents.
var ErrNoFiles = errors.New("files: no files")

// Uploader is the file service surface.
type Uploader interface {
	UploadFile(ctx context.Context, filename string, content io.Reader) (string, error)
}

// Document is one file to upload. Open is called once from the upload
// goroutine.
type Document struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// Service uploads documents concurrently.
type Service struct {
	api    Uploader
	audit  *shared.AuditLogger
	logger *slog.Logger
	limit  int
}

// NewService builds Service instance. limit bounds concurrent uploads.
func NewService(api Uploader, audit *shared.AuditLogger, logger *slog.Logger, limit int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 4
	}
	return &Service{api: api, audit: audit, logger: logger, limit: limit}
}

// Upload sends every document and returns the URLs in input order. The first
// failure cancels the remaining uploads and no URLs are returned.
func (s *Service) Upload(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, ErrNoFiles
	}
	urls := make([]string, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, doc := range docs {
		g.Go(func() error {
			content, err := doc.Open()
			if err != nil {
				return fmt.Errorf("files: open %s: %w", doc.Name, err)
			}
			defer content.Close()
			url, err := s.api.UploadFile(gctx, doc.Name, content)
			if err != nil {
				return fmt.Errorf("files: upload %s: %w", doc.Name, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.record(ctx, docs, urls)
	return urls, nil
}

func (s *Service) record(ctx context.Context, docs []Document, urls []string) {
	actor := ""
	if p := auth.IdentityFromContext(ctx).Principal(); p != nil {
		actor = p.SisiID
	}
	for i, doc := range docs {
		err := s.audit.Record(ctx, shared.AuditLog{
			Actor: actor, Action: shared.AuditFileUploaded, Entity: "file", EntityID: urls[i],
			Meta: map[string]any{"name": doc.Name},
		})
		if err != nil {
			s.logger.Warn("audit file upload", slog.Any("error", err))
		}
	}
}
