package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docsight/internal/config"
	"github.com/dgallion1/docsight/internal/docstore"
	"github.com/dgallion1/docsight/internal/export"
	"github.com/dgallion1/docsight/internal/llm"
	"github.com/dgallion1/docsight/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) Model() string { return "stub" }

func (g *stubGenerator) Generate(context.Context, string) (string, error) {
	return g.reply, g.err
}

const tradesXML = `<root><trade id="1"><price>100</price></trade><trade id="2"><price>200</price></trade></root>`

func newTestServer(t *testing.T, gen llm.Generator, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.APIKey = ""
	cfg.PDFFallbackPdftotext = false
	if mutate != nil {
		mutate(&cfg)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	var svc *llm.Service
	if gen != nil {
		svc = llm.NewService(gen, log, llm.Options{Recorder: m, FailureThreshold: 100})
	}
	return NewServer(docstore.New(time.Hour, log), svc, export.New(log, m), m, log, cfg)
}

func uploadRequest(t *testing.T, filename, content, typeOverride string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	if typeOverride != "" {
		require.NoError(t, mw.WriteField("type", typeOverride))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, s *Server, filename, content string) documentView {
	t.Helper()
	rec := do(s, uploadRequest(t, filename, content, ""))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view documentView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthRequiredWhenKeySet(t *testing.T) {
	s := newTestServer(t, nil, func(c *config.Config) { c.APIKey = "secret" })

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing authorization", decodeBody(t, rec)["error"])

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, do(s, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, do(s, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, do(s, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("X-API-Key", "nope")
	assert.Equal(t, http.StatusUnauthorized, do(s, req).Code)

	// Health stays public.
	assert.Equal(t, http.StatusOK, do(s, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestUploadXML(t *testing.T) {
	s := newTestServer(t, nil, nil)
	view := upload(t, s, "trades.xml", tradesXML)

	assert.Len(t, view.ID, 16)
	assert.Equal(t, "trades.xml", view.Filename)
	assert.EqualValues(t, "xml", view.Format)
	assert.Equal(t, "root\n  trade\n    price: 100\n  trade\n    price: 200", view.Content)
	assert.NotNil(t, view.Structure)
}

func TestUploadJSONOrderPreserved(t *testing.T) {
	s := newTestServer(t, nil, nil)
	view := upload(t, s, "data.json", `{"b": 1, "a": [true, null]}`)

	assert.EqualValues(t, "json", view.Format)
	assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": [\n    true,\n    null\n  ]\n}", view.Content)
}

func TestUploadTypeOverride(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rec := do(s, uploadRequest(t, "notes.txt", `{"k": "v"}`, "application/json"))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "json", decodeBody(t, rec)["format"])
}

func TestUploadMalformedIs422(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := do(s, uploadRequest(t, "bad.json", `{"a": `, ""))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "JSON")

	rec = do(s, uploadRequest(t, "bad.xml", `<a><b></a>`, ""))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "XML parsing error")

	assert.Empty(t, s.store.List())
}

func TestUploadTooLarge(t *testing.T) {
	s := newTestServer(t, nil, func(c *config.Config) { c.MaxUploadBytes = 10 })
	rec := do(s, uploadRequest(t, "big.txt", strings.Repeat("x", 100), ""))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadMissingFile(t *testing.T) {
	s := newTestServer(t, nil, nil)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("type", "application/json"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	assert.Equal(t, http.StatusBadRequest, do(s, req).Code)
}

func TestListGetDelete(t *testing.T) {
	s := newTestServer(t, nil, nil)
	view := upload(t, s, "notes.txt", "first paragraph\n\nsecond paragraph")

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Documents []docstore.Info `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Documents, 1)
	assert.Equal(t, view.ID, list.Documents[0].ID)
	assert.Equal(t, len("first paragraph\n\nsecond paragraph"), list.Documents[0].Size)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/documents/"+view.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "text", got["format"])
	assert.NotContains(t, got, "structure")

	rec = do(s, httptest.NewRequest(http.MethodDelete, "/api/documents/"+view.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/documents/"+view.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(s, httptest.NewRequest(http.MethodDelete, "/api/documents/"+view.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportXLSX(t *testing.T) {
	s := newTestServer(t, nil, nil)
	view := upload(t, s, "trades.xml", tradesXML)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/documents/"+view.ID+"/export.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="trades.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"price", "trade id"}, {"100", "1"}, {"200", "2"}}, rows)
}

func TestExportXLSXFallbackForText(t *testing.T) {
	s := newTestServer(t, nil, nil)
	view := upload(t, s, "notes.txt", "just prose")

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/documents/"+view.ID+"/export.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	a1, err := f.GetCellValue(f.GetSheetName(0), "A1")
	require.NoError(t, err)
	assert.Equal(t, export.FallbackTitle, a1)
}

func TestModelEndpointsWithoutModel(t *testing.T) {
	s := newTestServer(t, nil, nil)
	view := upload(t, s, "notes.txt", "prose")

	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/documents/"+view.ID+"/summary", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = do(s, httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSummaryThenPDF(t *testing.T) {
	s := newTestServer(t, &stubGenerator{reply: "## Key points\n\n- two trades\n- total 300"}, nil)
	view := upload(t, s, "trades.xml", tradesXML)
	base := "/api/documents/" + view.ID

	rec := do(s, httptest.NewRequest(http.MethodGet, base+"/summary.pdf", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodPost, base+"/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "## Key points\n\n- two trades\n- total 300", decodeBody(t, rec)["summary"])

	rec = do(s, httptest.NewRequest(http.MethodGet, base, nil))
	assert.Equal(t, "## Key points\n\n- two trades\n- total 300", decodeBody(t, rec)["summary"])

	rec = do(s, httptest.NewRequest(http.MethodGet, base+"/summary.pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	// Re-uploading the same bytes starts a fresh session.
	upload(t, s, "trades.xml", tradesXML)
	rec = do(s, httptest.NewRequest(http.MethodGet, base+"/summary.pdf", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAsk(t *testing.T) {
	s := newTestServer(t, &stubGenerator{reply: "Two trades."}, nil)
	view := upload(t, s, "trades.xml", tradesXML)
	url := "/api/documents/" + view.ID + "/ask"

	rec := do(s, httptest.NewRequest(http.MethodPost, url, strings.NewReader(`{"question":"How many trades?"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Two trades.", decodeBody(t, rec)["answer"])

	rec = do(s, httptest.NewRequest(http.MethodPost, url, strings.NewReader(`{"question":"  "}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodPost, url, strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeNotTradeRelated(t *testing.T) {
	s := newTestServer(t, &stubGenerator{reply: llm.NotTradeRelated}, nil)
	view := upload(t, s, "recipe.txt", "flour, water, salt")

	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/documents/"+view.ID+"/analyze", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "this feature is only for trade-related files", decodeBody(t, rec)["error"])
}

func TestModelFailureIs502(t *testing.T) {
	s := newTestServer(t, &stubGenerator{err: assert.AnError}, nil)
	view := upload(t, s, "trades.xml", tradesXML)

	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/documents/"+view.ID+"/analyze", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLLMStatsAndMetrics(t *testing.T) {
	s := newTestServer(t, &stubGenerator{reply: "ok"}, nil)
	view := upload(t, s, "trades.xml", tradesXML)
	do(s, httptest.NewRequest(http.MethodPost, "/api/documents/"+view.ID+"/summary", nil))

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Model string                       `json:"model"`
		Stats map[string]llm.StatsSnapshot `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "stub", stats.Model)
	assert.Equal(t, 1, stats.Stats[llm.OpSummarize].Count)

	rec = do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `docsight_uploads_total{format="xml"} 1`)
	assert.Contains(t, body, `docsight_llm_calls_total{operation="summarize",outcome="ok"} 1`)
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":         "report.pdf",
		"../../etc/passwd":   "passwd",
		`C:\Users\me\a.json`: "a.json",
		"":                   "unnamed",
		"..":                 "_",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
