package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/wedplan/internal/models"
	"github.com/mmynk/wedplan/internal/storage"
)

// StoreExporter keeps rendered estimates in the data store and serves them
// back as downloads.
type StoreExporter struct {
	store       storage.Store
	renderer    *Renderer
	downloadURL string
	now         func() time.Time
}

// NewStoreExporter creates an exporter backed by store. downloadURL is the
// public prefix exports are served under, e.g. "https://example.com/exports".
func NewStoreExporter(store storage.Store, renderer *Renderer, downloadURL string) *StoreExporter {
	return &StoreExporter{
		store:       store,
		renderer:    renderer,
		downloadURL: strings.TrimSuffix(downloadURL, "/"),
		now:         time.Now,
	}
}

// Export renders req and inserts it into the exports collection.
func (e *StoreExporter) Export(ctx context.Context, req Request) (*Receipt, error) {
	doc, err := e.renderer.Render(req)
	if err != nil {
		return nil, err
	}

	var shareQuery string
	if req.ShareLink != "" {
		if u, err := url.Parse(req.ShareLink); err == nil {
			shareQuery = u.RawQuery
		}
	}

	record := &models.Export{
		ID:          uuid.New().String(),
		CreatedBy:   req.RequestedBy,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		Body:        doc.Body,
		GuestCount:  req.GuestCount,
		Tier:        string(req.Tier),
		TotalCost:   req.Output.TotalCost,
		ShareQuery:  shareQuery,
		CreatedAt:   e.now().Unix(),
	}
	if _, err := e.store.Insert(ctx, models.ExportsCollection, record.Row()); err != nil {
		return nil, fmt.Errorf("failed to store export: %w", err)
	}

	slog.Info("Export stored", "export_id", record.ID, "created_by", record.CreatedBy, "bytes", len(record.Body))
	return &Receipt{
		ID:       record.ID,
		Filename: record.Filename,
		Location: e.downloadURL + "/" + record.ID,
	}, nil
}

// Get loads a stored export.
func (e *StoreExporter) Get(ctx context.Context, id string) (*models.Export, error) {
	row, err := e.store.Get(ctx, models.ExportsCollection, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return models.ExportFromRow(row), nil
}

// List returns the exports created by userID, newest first.
func (e *StoreExporter) List(ctx context.Context, userID string, limit int) ([]*models.Export, error) {
	rows, err := e.store.Select(ctx, models.ExportsCollection, storage.Query{
		Filters:    map[string]any{"created_by": userID},
		OrderBy:    "created_at",
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	exports := make([]*models.Export, len(rows))
	for i, row := range rows {
		exports[i] = models.ExportFromRow(row)
	}
	return exports, nil
}

// DownloadHandler serves GET {prefix}/{id} as an attachment. It expects to be
// registered on a pattern with an {id} wildcard.
func (e *StoreExporter) DownloadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if _, err := uuid.Parse(id); err != nil {
			http.NotFound(w, r)
			return
		}

		record, err := e.Get(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			slog.Error("Export download failed", "export_id", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", record.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Filename))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(record.Body); err != nil {
			slog.Warn("Export download interrupted", "export_id", id, "error", err)
		}
	})
}
