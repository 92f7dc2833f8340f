// Package documentshttp exposes the document store, drafts and user name as
// a JSON API.
package documentshttp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/gubevu/invoicing/internal/documents"
	"github.com/gubevu/invoicing/internal/platform/httpx"
)

const (
	defaultExportLimit = 10
	rateWindow         = time.Minute
)

// MountRoutes registers the API endpoints on r.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil || h.docs == nil {
		return
	}
	limit := h.ExportLimit
	if limit <= 0 {
		limit = defaultExportLimit
	}
	limiter := httprate.Limit(limit, rateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit reached")
		}),
	)

	r.Route("/api", func(api chi.Router) {
		api.Get("/documents", h.handleListDocuments)
		api.Post("/documents", h.handleCreateDocument)
		api.Get("/documents/{id}", h.handleGetDocument)
		api.Put("/documents/{id}", h.handlePutDocument)
		api.Delete("/documents/{id}", h.handleDeleteDocument)
		api.Post("/documents/{id}/status", h.handleUpdateStatus)
		api.Post("/quotes/{id}/convert", h.handleConvertQuote)
		api.Get("/stats", h.handleStats)
		api.Post("/totals", h.handleTotals)

		if h.users != nil {
			api.Get("/user", h.handleGetUser)
			api.Put("/user", h.handlePutUser)
			api.Delete("/user", h.handleDeleteUser)
		}

		if h.drafts != nil {
			api.Post("/drafts", h.handleCreateDraft)
			api.Route("/drafts/{sid}", func(dr chi.Router) {
				dr.Get("/", h.handleGetDraft)
				dr.Put("/", h.handlePutDraft)
				dr.Patch("/", h.handlePatchDraft)
				dr.Delete("/", h.handleDeleteDraft)
				dr.Post("/items", h.handleAddDraftItem)
				dr.Delete("/items/{index}", h.handleRemoveDraftItem)
				dr.Get("/preview", h.handlePreviewDraft)
				dr.Post("/commit", h.handleCommitDraft)
			})
		}

		api.Group(func(gr chi.Router) {
			gr.Use(limiter)
			gr.Get("/export.csv", h.handleExportCSV)
			gr.Get("/export.xlsx", h.handleExportXLSX)
		})
	})
}

func validationError(field, value string) error {
	return fmt.Errorf("%w: invalid %s %q", httpx.ErrValidation, field, value)
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", documents.ErrNotFound, id)
}
