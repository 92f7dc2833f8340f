package documentshttp

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubevu/invoicing/internal/documents"
	"github.com/gubevu/invoicing/internal/drafts"
	"github.com/gubevu/invoicing/internal/platform/httpx"
	"github.com/gubevu/invoicing/internal/storage"
	"github.com/gubevu/invoicing/internal/users"
)

type testAPI struct {
	router http.Handler
	docs   *documents.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	kv := storage.NewMemoryStore(storage.Options{})
	docs := documents.NewStore(kv, documents.StoreConfig{})
	manager := drafts.NewManager(storage.NewMemoryStore(storage.Options{}), docs, nil)
	handler := NewHandler(nil, docs, users.NewService(kv), manager)

	r := chi.NewRouter()
	handler.MountRoutes(r)
	return &testAPI{router: r, docs: docs}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

const invoiceBody = `{"type":"invoice","client":{"name":"Thandi"},"items":[{"description":"Cable","unitPrice":"100","quantity":"2"}]}`

func TestCreateAndGetDocument(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/api/documents", invoiceBody)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[documents.Document](t, rr)
	assert.True(t, strings.HasPrefix(created.ID, "INV-"))
	assert.Equal(t, "230", created.Totals.Total.String())

	rr = api.do(t, http.MethodGet, "/api/documents/"+created.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[documents.Document](t, rr)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Thandi", got.Client.Name)
}

func TestGetMissingDocumentIs404(t *testing.T) {
	api := newTestAPI(t)
	rr := api.do(t, http.MethodGet, "/api/documents/INV-nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestCreateRejectsBadInput(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/api/documents", `{"type":"receipt"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	problem := decode[httpx.ProblemDetail](t, rr)
	assert.Equal(t, "Invalid Document", problem.Title)
	assert.Equal(t, "oneof", problem.Errors["type"])

	rr = api.do(t, http.MethodPost, "/api/documents", `{`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPutReplacesDocument(t *testing.T) {
	api := newTestAPI(t)
	created := decode[documents.Document](t, api.do(t, http.MethodPost, "/api/documents", invoiceBody))

	rr := api.do(t, http.MethodPut, "/api/documents/"+created.ID, `{"type":"invoice","notes":"updated","client":{"name":"Thandi"}}`)
	require.Equal(t, http.StatusOK, rr.Code)

	all, err := api.docs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "updated", all[0].Notes)
	assert.True(t, all[0].CreatedAt.Equal(created.CreatedAt))
}

func TestListFiltersByQuery(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/documents", invoiceBody)
	api.do(t, http.MethodPost, "/api/documents", `{"type":"quote","status":"sent"}`)

	all := decode[[]documents.Document](t, api.do(t, http.MethodGet, "/api/documents", ""))
	assert.Len(t, all, 2)

	quotes := decode[[]documents.Document](t, api.do(t, http.MethodGet, "/api/documents?type=quote", ""))
	require.Len(t, quotes, 1)
	assert.Equal(t, documents.TypeQuote, quotes[0].Type)

	sent := decode[[]documents.Document](t, api.do(t, http.MethodGet, "/api/documents?status=sent&type=invoice", ""))
	assert.Empty(t, sent)

	rr := api.do(t, http.MethodGet, "/api/documents?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusAndDelete(t *testing.T) {
	api := newTestAPI(t)
	created := decode[documents.Document](t, api.do(t, http.MethodPost, "/api/documents", invoiceBody))

	rr := api.do(t, http.MethodPost, "/api/documents/"+created.ID+"/status", `{"status":"paid"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	paid := decode[documents.Document](t, rr)
	assert.Equal(t, documents.StatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	rr = api.do(t, http.MethodPost, "/api/documents/"+created.ID+"/status", `{"status":"lost"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodPost, "/api/documents/INV-missing/status", `{"status":"sent"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = api.do(t, http.MethodDelete, "/api/documents/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = api.do(t, http.MethodDelete, "/api/documents/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestConvertQuoteEndpoint(t *testing.T) {
	api := newTestAPI(t)
	quote := decode[documents.Document](t, api.do(t, http.MethodPost, "/api/documents", `{"type":"quote","client":{"name":"Sipho"}}`))

	rr := api.do(t, http.MethodPost, "/api/quotes/"+quote.ID+"/convert", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	conv := decode[documents.Conversion](t, rr)
	assert.Equal(t, quote.ID, conv.Invoice.OriginalQuoteID)

	rr = api.do(t, http.MethodPost, "/api/quotes/"+quote.ID+"/convert", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	again := decode[documents.Conversion](t, rr)
	assert.NotEqual(t, conv.InvoiceID, again.InvoiceID)
	assert.Equal(t, quote.ID, again.Invoice.OriginalQuoteID)

	stats := decode[documents.Stats](t, api.do(t, http.MethodGet, "/api/stats", ""))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Invoices)
	assert.Equal(t, 2, stats.Drafts)
}

func TestTotalsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	rr := api.do(t, http.MethodPost, "/api/totals",
		`{"items":[{"unitPrice":"100","quantity":"2"},{"unitPrice":50,"quantity":1}]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Display map[string]string `json:"display"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "R 250.00", body.Display["subtotal"])
	assert.Equal(t, "R 37.50", body.Display["taxAmount"])
	assert.Equal(t, "R 287.50", body.Display["total"])
}

func TestUserEndpoints(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, users.DefaultName, decode[userPayload](t, api.do(t, http.MethodGet, "/api/user", "")).Name)

	rr := api.do(t, http.MethodPut, "/api/user", `{"name":"  Lerato "}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Lerato", decode[userPayload](t, rr).Name)

	assert.Equal(t, http.StatusNoContent, api.do(t, http.MethodDelete, "/api/user", "").Code)
	assert.Equal(t, users.DefaultName, decode[userPayload](t, api.do(t, http.MethodGet, "/api/user", "")).Name)
}

func TestDraftFlow(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/api/drafts", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	sid := decode[sessionResponse](t, rr).SessionID
	require.NotEmpty(t, sid)
	base := "/api/drafts/" + sid

	rr = api.do(t, http.MethodGet, base+"/preview", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Incomplete Draft", decode[httpx.ProblemDetail](t, rr).Title)

	rr = api.do(t, http.MethodPatch, base, `{"clientName":"Thandi","clientEmail":"t@example.co.za"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = api.do(t, http.MethodPost, base+"/items", `{"description":"Cable","unitPrice":"100","quantity":"2"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = api.do(t, http.MethodPost, base+"/items", `{"description":"Extra","unitPrice":"1","quantity":"1"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = api.do(t, http.MethodDelete, base+"/items/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[drafts.Draft](t, rr).Items, 1)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodDelete, base+"/items/x", "").Code)

	rr = api.do(t, http.MethodGet, base+"/preview", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, drafts.DefaultNotes, decode[documents.Document](t, rr).Notes)

	rr = api.do(t, http.MethodPost, base+"/commit", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	committed := decode[documents.Document](t, rr)

	got, err := api.docs.Get(context.Background(), committed.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	rr = api.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[drafts.Draft](t, rr).Items)
}

func TestExportCSV(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodPost, "/api/documents", invoiceBody)

	rr := api.do(t, http.MethodGet, "/api/export.csv", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	records, err := csv.NewReader(bytes.NewReader(rr.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	rr = api.do(t, http.MethodGet, "/api/export.xlsx", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotZero(t, rr.Body.Len())
}

func TestExportIsRateLimited(t *testing.T) {
	kv := storage.NewMemoryStore(storage.Options{})
	handler := NewHandler(nil, documents.NewStore(kv, documents.StoreConfig{}), nil, nil)
	handler.ExportLimit = 1
	r := chi.NewRouter()
	handler.MountRoutes(r)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/export.csv", nil))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/user", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

type failingDocs struct {
	DocumentService
}

func (failingDocs) Stats(context.Context) (documents.Stats, error) {
	return documents.Stats{}, errors.Join(documents.ErrPersistence, errors.New("disk gone"))
}

func (failingDocs) ListByStatus(context.Context, documents.Status, documents.TypeFilter) ([]documents.Document, error) {
	return nil, errors.New("unexpected")
}

func TestPersistenceFailuresMapTo5xx(t *testing.T) {
	handler := NewHandler(nil, failingDocs{}, nil, nil)
	r := chi.NewRouter()
	handler.MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/export.csv", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "unexpected")
}
