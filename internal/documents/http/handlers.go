package documentshttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gubevu/invoicing/internal/documents"
	"github.com/gubevu/invoicing/internal/drafts"
	"github.com/gubevu/invoicing/internal/export"
	"github.com/gubevu/invoicing/internal/platform/httpx"
	"github.com/gubevu/invoicing/internal/storage"
)

// DocumentService is the persistence contract used by the handlers.
type DocumentService interface {
	Save(ctx context.Context, doc documents.Document) (documents.Document, error)
	Get(ctx context.Context, id string) (*documents.Document, error)
	List(ctx context.Context) ([]documents.Document, error)
	ListByStatus(ctx context.Context, status documents.Status, filter documents.TypeFilter) ([]documents.Document, error)
	UpdateStatus(ctx context.Context, id string, status documents.Status) (documents.Document, error)
	Delete(ctx context.Context, id string) error
	ConvertQuote(ctx context.Context, quoteID string) (documents.Conversion, error)
	Stats(ctx context.Context) (documents.Stats, error)
}

// UserService stores the display name of the current user.
type UserService interface {
	Current(ctx context.Context) (string, error)
	SetCurrent(ctx context.Context, name string) error
	Clear(ctx context.Context) error
}

// DraftService manages in-progress documents per session.
type DraftService interface {
	Load(ctx context.Context, sid string) (drafts.Draft, error)
	Save(ctx context.Context, sid string, d drafts.Draft) error
	Merge(ctx context.Context, sid string, fields map[string]string) (drafts.Draft, error)
	AddItem(ctx context.Context, sid string, item documents.LineItem) (drafts.Draft, error)
	RemoveItem(ctx context.Context, sid string, index int) (drafts.Draft, error)
	Clear(ctx context.Context, sid string) error
	Preview(ctx context.Context, sid string) (documents.Document, error)
	Commit(ctx context.Context, sid string) (documents.Document, error)
}

// Handler serves the JSON API over the document store.
type Handler struct {
	logger *slog.Logger
	docs   DocumentService
	users  UserService
	drafts DraftService
	// ExportLimit caps export requests per client per minute.
	ExportLimit int
}

// NewHandler builds a Handler. users and drafts may be nil, which disables
// their routes.
func NewHandler(logger *slog.Logger, docs DocumentService, users UserService, drafts DraftService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, docs: docs, users: users, drafts: drafts, ExportLimit: defaultExportLimit}
}

var errorMappings = []httpx.Mapping{
	{Target: documents.ErrNotFound, Status: http.StatusNotFound, Title: "Not Found"},
	{Target: documents.ErrInvalidDocument, Status: http.StatusBadRequest, Title: "Invalid Document"},
	{Target: documents.ErrInvalidClient, Status: http.StatusBadRequest, Title: "Invalid Client"},
	{Target: drafts.ErrIncomplete, Status: http.StatusBadRequest, Title: "Incomplete Draft"},
	{Target: drafts.ErrItemIndex, Status: http.StatusBadRequest, Title: "Invalid Item"},
	{Target: drafts.ErrSessionRequired, Status: http.StatusBadRequest, Title: "Session Required"},
	{Target: storage.ErrQuotaExceeded, Status: http.StatusInsufficientStorage, Title: "Storage Full"},
	{Target: documents.ErrPersistence, Status: http.StatusServiceUnavailable, Title: "Storage Unavailable"},
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	level := slog.LevelInfo
	if !isClientError(err) {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, op, slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err, errorMappings...)
}

func isClientError(err error) bool {
	for _, m := range errorMappings {
		if errors.Is(err, m.Target) && m.Status < http.StatusInternalServerError {
			return true
		}
	}
	return errors.Is(err, httpx.ErrValidation)
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	status, filter, err := parseListQuery(r)
	if err != nil {
		h.respondError(w, r, "list documents", err)
		return
	}
	var docs []documents.Document
	if status == documents.StatusAll && filter == documents.FilterAll {
		docs, err = h.docs.List(r.Context())
	} else {
		docs, err = h.docs.ListByStatus(r.Context(), status, filter)
	}
	if err != nil {
		h.respondError(w, r, "list documents", err)
		return
	}
	httpx.JSON(w, http.StatusOK, docs)
}

func parseListQuery(r *http.Request) (documents.Status, documents.TypeFilter, error) {
	q := r.URL.Query()
	status := documents.Status(strings.TrimSpace(q.Get("status")))
	if status == "" {
		status = documents.StatusAll
	}
	if status != documents.StatusAll && !status.Valid() {
		return "", "", validationError("status", string(status))
	}
	filter := documents.TypeFilter(strings.TrimSpace(q.Get("type")))
	switch filter {
	case "":
		filter = documents.FilterAll
	case documents.FilterAll, documents.FilterInvoices, documents.FilterQuotes:
	default:
		return "", "", validationError("type", string(filter))
	}
	return status, filter, nil
}

func (h *Handler) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var doc documents.Document
	if err := httpx.DecodeJSON(w, r, &doc); err != nil {
		h.respondError(w, r, "decode document", err)
		return
	}
	saved, err := h.docs.Save(r.Context(), doc)
	if err != nil {
		h.respondError(w, r, "save document", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, saved)
}

func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.docs.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get document", err)
		return
	}
	if doc == nil {
		h.respondError(w, r, "get document", notFound(id))
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	var doc documents.Document
	if err := httpx.DecodeJSON(w, r, &doc); err != nil {
		h.respondError(w, r, "decode document", err)
		return
	}
	doc.ID = chi.URLParam(r, "id")
	saved, err := h.docs.Save(r.Context(), doc)
	if err != nil {
		h.respondError(w, r, "save document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.docs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status documents.Status `json:"status"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, "decode status", err)
		return
	}
	doc, err := h.docs.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.respondError(w, r, "update status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleConvertQuote(w http.ResponseWriter, r *http.Request) {
	conv, err := h.docs.ConvertQuote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, "convert quote", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, conv)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.docs.Stats(r.Context())
	if err != nil {
		h.respondError(w, r, "stats", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

type totalsRequest struct {
	Items []documents.LineItem `json:"items"`
}

type totalsResponse struct {
	documents.Breakdown
	Display map[string]string `json:"display"`
}

func (h *Handler) handleTotals(w http.ResponseWriter, r *http.Request) {
	var req totalsRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, "decode totals", err)
		return
	}
	breakdown := documents.ComputeOverallTotals(req.Items)
	httpx.JSON(w, http.StatusOK, totalsResponse{
		Breakdown: breakdown,
		Display: map[string]string{
			"subtotal":  documents.FormatCurrency(breakdown.Subtotal),
			"taxAmount": documents.FormatCurrency(breakdown.TaxAmount),
			"total":     documents.FormatCurrency(breakdown.Total),
		},
	})
}

type userPayload struct {
	Name string `json:"name"`
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	name, err := h.users.Current(r.Context())
	if err != nil {
		h.logger.Warn("load current user", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, userPayload{Name: name})
}

func (h *Handler) handlePutUser(w http.ResponseWriter, r *http.Request) {
	var req userPayload
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, "decode user", err)
		return
	}
	if err := h.users.SetCurrent(r.Context(), req.Name); err != nil {
		h.respondError(w, r, "set user", err)
		return
	}
	h.handleGetUser(w, r)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Clear(r.Context()); err != nil {
		h.respondError(w, r, "clear user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
}

func (h *Handler) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusCreated, sessionResponse{SessionID: drafts.NewSessionID()})
}

func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.drafts.Load(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		h.respondError(w, r, "load draft", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) handlePutDraft(w http.ResponseWriter, r *http.Request) {
	var d drafts.Draft
	if err := httpx.DecodeJSON(w, r, &d); err != nil {
		h.respondError(w, r, "decode draft", err)
		return
	}
	d.Items = documents.ComputeLineItemTotals(d.Items)
	if err := h.drafts.Save(r.Context(), chi.URLParam(r, "sid"), d); err != nil {
		h.respondError(w, r, "save draft", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) handlePatchDraft(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := httpx.DecodeJSON(w, r, &fields); err != nil {
		h.respondError(w, r, "decode draft fields", err)
		return
	}
	d, err := h.drafts.Merge(r.Context(), chi.URLParam(r, "sid"), fields)
	if err != nil {
		h.respondError(w, r, "merge draft", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.Clear(r.Context(), chi.URLParam(r, "sid")); err != nil {
		h.respondError(w, r, "clear draft", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddDraftItem(w http.ResponseWriter, r *http.Request) {
	var item documents.LineItem
	if err := httpx.DecodeJSON(w, r, &item); err != nil {
		h.respondError(w, r, "decode item", err)
		return
	}
	d, err := h.drafts.AddItem(r.Context(), chi.URLParam(r, "sid"), item)
	if err != nil {
		h.respondError(w, r, "add item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) handleRemoveDraftItem(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		h.respondError(w, r, "remove item", validationError("index", raw))
		return
	}
	d, err := h.drafts.RemoveItem(r.Context(), chi.URLParam(r, "sid"), index)
	if err != nil {
		h.respondError(w, r, "remove item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) handlePreviewDraft(w http.ResponseWriter, r *http.Request) {
	doc, err := h.drafts.Preview(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		h.respondError(w, r, "preview draft", err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleCommitDraft(w http.ResponseWriter, r *http.Request) {
	doc, err := h.drafts.Commit(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		h.respondError(w, r, "commit draft", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	docs, ok := h.exportRows(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="documents.csv"`)
	if err := export.WriteDocumentsCSV(w, docs); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	docs, ok := h.exportRows(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="documents.xlsx"`)
	if err := export.WriteDocumentsXLSX(w, docs); err != nil {
		h.logger.Warn("write xlsx", slog.Any("error", err))
	}
}

func (h *Handler) exportRows(w http.ResponseWriter, r *http.Request) ([]documents.Document, bool) {
	status, filter, err := parseListQuery(r)
	if err != nil {
		h.respondError(w, r, "export documents", err)
		return nil, false
	}
	docs, err := h.docs.ListByStatus(r.Context(), status, filter)
	if err != nil {
		h.respondError(w, r, "export documents", err)
		return nil, false
	}
	return docs, true
}
