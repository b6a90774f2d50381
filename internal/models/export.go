package models

import "github.com/mmynk/wedplan/internal/storage"

// ExportsCollection is the data-store collection exports are written to.
const ExportsCollection = "exports"

// Export is a rendered drinks estimate.
type Export struct {
	// ID is the unique identifier for the export (UUID format).
	ID string

	// CreatedBy is the user ID of the session that requested the export.
	// Empty for exports produced outside an authenticated session.
	CreatedBy string

	// Filename is the suggested download name.
	Filename string

	// ContentType is the MIME type of Body.
	ContentType string

	// Body is the rendered document.
	Body []byte

	// GuestCount, Tier and TotalCost summarise the estimate for listings.
	GuestCount int
	Tier       string
	TotalCost  float64

	// ShareQuery is the encoded share state the export was rendered from.
	ShareQuery string

	// CreatedAt is the Unix timestamp when the export was stored.
	CreatedAt int64
}

// Row converts the export to a data-store row.
func (e *Export) Row() storage.Row {
	return storage.Row{
		"id":           e.ID,
		"created_by":   e.CreatedBy,
		"filename":     e.Filename,
		"content_type": e.ContentType,
		"body":         e.Body,
		"guest_count":  int64(e.GuestCount),
		"tier":         e.Tier,
		"total_cost":   e.TotalCost,
		"share_query":  e.ShareQuery,
		"created_at":   e.CreatedAt,
	}
}

// ExportFromRow reads an export back from a data-store row.
func ExportFromRow(r storage.Row) *Export {
	return &Export{
		ID:          r.String("id"),
		CreatedBy:   r.String("created_by"),
		Filename:    r.String("filename"),
		ContentType: r.String("content_type"),
		Body:        r.Bytes("body"),
		GuestCount:  int(r.Int64("guest_count")),
		Tier:        r.String("tier"),
		TotalCost:   r.Float64("total_cost"),
		ShareQuery:  r.String("share_query"),
		CreatedAt:   r.Int64("created_at"),
	}
}
