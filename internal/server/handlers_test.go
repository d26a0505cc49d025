package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jackzampolin/ieltsmeta/internal/batch"
	"github.com/jackzampolin/ieltsmeta/internal/providers"
	"github.com/jackzampolin/ieltsmeta/internal/server/endpoints"
	"github.com/jackzampolin/ieltsmeta/internal/testutil"
)

// newLoadedHandler returns the server's handler with the engine opened.
func newLoadedHandler(t *testing.T, mock *providers.MockClient) http.Handler {
	t.Helper()
	srv, _ := newServer(t, mock)
	engine := srv.Services().Engine
	if err := engine.Open(context.Background()); err != nil {
		t.Fatalf("engine.Open() error = %v", err)
	}
	t.Cleanup(func() { engine.Close(context.Background()) })
	return srv.Handler()
}

func fixtureMock(t *testing.T) *providers.MockClient {
	return &providers.MockClient{ResponseText: testutil.Fixture(t, "bar_chart.json"), RPS: 1000}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func upload(t *testing.T, h http.Handler, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/extract/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRootEndpoint(t *testing.T) {
	h := newLoadedHandler(t, fixtureMock(t))

	rec := do(t, h, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decode[endpoints.RootResponse](t, rec)
	if got.Message != "IELTS Task 1 Metadata Extraction API" {
		t.Errorf("Message = %q", got.Message)
	}
	want := map[string]string{
		"extract_from_url":  "/api/extract/url",
		"extract_from_file": "/api/extract/file",
		"extract_batch":     "/api/extract/batch",
		"health":            "/health",
	}
	if diff := cmp.Diff(want, got.Endpoints); diff != "" {
		t.Errorf("Endpoints mismatch (-want +got):\n%s", diff)
	}

	if rec := do(t, h, http.MethodGet, "/does-not-exist", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestEngineNotLoaded(t *testing.T) {
	mock := fixtureMock(t)
	srv, _ := newServer(t, mock)
	h := srv.Handler()

	health := decode[endpoints.HealthResponse](t, do(t, h, http.MethodGet, "/health", nil))
	if health.Status != "healthy" || health.ModelLoaded {
		t.Errorf("health = %+v, want healthy and not loaded", health)
	}

	rec := do(t, h, http.MethodPost, "/api/extract/url", endpoints.ExtractURLRequest{ImageURL: "https://example.com/a.png"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("extract status = %d, want 503", rec.Code)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("model calls = %d, want 0", mock.RequestCount())
	}
}

func TestExtractURL(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := newLoadedHandler(t, fixtureMock(t))
		rec := do(t, h, http.MethodPost, "/api/extract/url", endpoints.ExtractURLRequest{ImageURL: "https://example.com/chart.png"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get(endpoints.ViolationsHeader); got != "0" {
			t.Errorf("%s = %q, want 0", endpoints.ViolationsHeader, got)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("X-Request-ID not set")
		}
		doc := decode[map[string]any](t, rec)
		if doc["schema_version"] != "task1_v1" {
			t.Errorf("schema_version = %v, want task1_v1", doc["schema_version"])
		}
		if _, ok := doc["metadata"]; ok {
			t.Error("non-verbose response is wrapped")
		}
	})

	t.Run("verbose", func(t *testing.T) {
		h := newLoadedHandler(t, fixtureMock(t))
		rec := do(t, h, http.MethodPost, "/api/extract/url?verbose=true", endpoints.ExtractURLRequest{ImageURL: "https://example.com/chart.png"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		doc := decode[map[string]any](t, rec)
		meta, ok := doc["metadata"].(map[string]any)
		if !ok || meta["task_visual_category"] != "bar_chart" {
			t.Errorf("metadata = %v, want bar_chart document", doc["metadata"])
		}
		if v, ok := doc["violations"].([]any); !ok || len(v) != 0 {
			t.Errorf("violations = %v, want empty list", doc["violations"])
		}
	})

	t.Run("invalid url", func(t *testing.T) {
		mock := fixtureMock(t)
		h := newLoadedHandler(t, mock)
		rec := do(t, h, http.MethodPost, "/api/extract/url", endpoints.ExtractURLRequest{ImageURL: "not-a-url"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if got := decode[endpoints.ErrorResponse](t, rec).ErrorType; got != "malformed_input" {
			t.Errorf("error_type = %q, want malformed_input", got)
		}
		if mock.RequestCount() != 0 {
			t.Errorf("model calls = %d, want 0", mock.RequestCount())
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		h := newLoadedHandler(t, fixtureMock(t))
		if rec := do(t, h, http.MethodPost, "/api/extract/url", "{"); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("malformed model output", func(t *testing.T) {
		h := newLoadedHandler(t, &providers.MockClient{ResponseText: "The chart shows sales.", RPS: 1000})
		rec := do(t, h, http.MethodPost, "/api/extract/url", endpoints.ExtractURLRequest{ImageURL: "https://example.com/chart.png"})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		got := decode[endpoints.ErrorResponse](t, rec)
		if got.ErrorType != "malformed_output" {
			t.Errorf("error_type = %q, want malformed_output", got.ErrorType)
		}
		if got.RawOutput != "The chart shows sales." {
			t.Errorf("raw_output = %q, want verbatim model text", got.RawOutput)
		}
	})

	t.Run("model error", func(t *testing.T) {
		h := newLoadedHandler(t, &providers.MockClient{ShouldFail: true, RPS: 1000})
		rec := do(t, h, http.MethodPost, "/api/extract/url", endpoints.ExtractURLRequest{ImageURL: "https://example.com/chart.png"})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		if got := decode[endpoints.ErrorResponse](t, rec).ErrorType; got != "model_error" {
			t.Errorf("error_type = %q, want model_error", got)
		}
	})
}

func TestExtractFile(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fixture := testutil.Fixture(t, "bar_chart.json")
		var sawImage bool
		mock := &providers.MockClient{RPS: 1000, Handler: func(ctx context.Context, req *providers.ChatRequest) (string, error) {
			sawImage = len(req.Messages) == 2 && len(req.Messages[1].Images) == 1
			return fixture, nil
		}}
		h := newLoadedHandler(t, mock)

		rec := upload(t, h, "file", "chart.png", testutil.PNG(t))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		if !sawImage {
			t.Error("model request did not carry the uploaded image")
		}
	})

	t.Run("not an image", func(t *testing.T) {
		mock := fixtureMock(t)
		h := newLoadedHandler(t, mock)

		rec := upload(t, h, "file", "notes.txt", []byte("hello"))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if got := decode[endpoints.ErrorResponse](t, rec).ErrorType; got != "malformed_input" {
			t.Errorf("error_type = %q, want malformed_input", got)
		}
		if mock.RequestCount() != 0 {
			t.Errorf("model calls = %d, want 0", mock.RequestCount())
		}
	})

	t.Run("declared size over pixel limit", func(t *testing.T) {
		mock := fixtureMock(t)
		h := newLoadedHandler(t, mock)

		rec := upload(t, h, "file", "bomb.png", testutil.PNGHeader(30000, 30000))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
		}
		if got := decode[endpoints.ErrorResponse](t, rec).ErrorType; got != "malformed_input" {
			t.Errorf("error_type = %q, want malformed_input", got)
		}
		if mock.RequestCount() != 0 {
			t.Errorf("model calls = %d, want 0", mock.RequestCount())
		}
	})

	t.Run("missing field", func(t *testing.T) {
		h := newLoadedHandler(t, fixtureMock(t))
		if rec := upload(t, h, "image", "chart.png", testutil.PNG(t)); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestExtractBatch(t *testing.T) {
	fixture := testutil.Fixture(t, "bar_chart.json")
	mock := &providers.MockClient{RPS: 1000, Handler: func(ctx context.Context, req *providers.ChatRequest) (string, error) {
		if strings.Contains(req.Messages[1].ImageURLs[0], "broken") {
			return "", errors.New("upstream unavailable")
		}
		return fixture, nil
	}}
	h := newLoadedHandler(t, mock)

	t.Run("mixed results", func(t *testing.T) {
		urls := []string{
			"https://example.com/1.png",
			"https://example.com/broken.png",
			"ftp://example.com/3.png",
		}
		rec := do(t, h, http.MethodPost, "/api/extract/batch", endpoints.BatchRequest{ImageURLs: urls})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		report := decode[batch.Report](t, rec)
		if report.TotalImages != 3 || report.Successful != 1 || report.Failed != 2 {
			t.Errorf("counts = %d/%d/%d, want 3/1/2", report.TotalImages, report.Successful, report.Failed)
		}

		type row struct {
			URL       string
			Index     int
			Success   bool
			ErrorType string
		}
		var got []row
		for _, it := range report.Results {
			got = append(got, row{it.ImageURL, it.Index, it.Success, string(it.ErrorType)})
		}
		want := []row{
			{urls[0], 0, true, ""},
			{urls[1], 1, false, "model_error"},
			{urls[2], 2, false, "malformed_input"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("results mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("over the limit", func(t *testing.T) {
		urls := make([]string, 6)
		for i := range urls {
			urls[i] = "https://example.com/a.png"
		}
		if rec := do(t, h, http.MethodPost, "/api/extract/batch", endpoints.BatchRequest{ImageURLs: urls}); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("empty", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/extract/batch", endpoints.BatchRequest{ImageURLs: []string{}})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if report := decode[batch.Report](t, rec); report.TotalImages != 0 || report.Results == nil {
			t.Errorf("report = %+v, want empty results", report)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		if rec := do(t, h, http.MethodPost, "/api/extract/batch", `{"image_urls": "nope"}`); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestSchemaEndpoint(t *testing.T) {
	h := newLoadedHandler(t, fixtureMock(t))
	rec := do(t, h, http.MethodGet, "/api/schema", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Schema-Version"); got != "task1_v1" {
		t.Errorf("X-Schema-Version = %q, want task1_v1", got)
	}
	doc := decode[map[string]any](t, rec)
	if _, ok := doc["properties"]; !ok {
		t.Errorf("schema document has no properties: %v", doc)
	}
}

func TestPromptEndpoints(t *testing.T) {
	h := newLoadedHandler(t, fixtureMock(t))

	list := decode[endpoints.PromptsListResponse](t, do(t, h, http.MethodGet, "/api/prompts", nil))
	var keys []string
	for _, p := range list.Prompts {
		keys = append(keys, p.Key)
		if p.Hash == "" {
			t.Errorf("prompt %s has no hash", p.Key)
		}
	}
	if diff := cmp.Diff([]string{"extract.task1.system", "extract.task1.user"}, keys); diff != "" {
		t.Errorf("prompt keys mismatch (-want +got):\n%s", diff)
	}

	rec := do(t, h, http.MethodGet, "/api/prompts/extract.task1.system", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}
	if got := decode[map[string]any](t, rec); got["schema_version"] != "task1_v1" {
		t.Errorf("schema_version = %v, want task1_v1", got["schema_version"])
	}

	if rec := do(t, h, http.MethodGet, "/api/prompts/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown prompt status = %d, want 404", rec.Code)
	}
}

func TestLLMCallEndpoints(t *testing.T) {
	h := newLoadedHandler(t, fixtureMock(t))

	do(t, h, http.MethodPost, "/api/extract/url", endpoints.ExtractURLRequest{ImageURL: "https://example.com/chart.png"})

	list := decode[endpoints.LLMCallsResponse](t, do(t, h, http.MethodGet, "/api/llmcalls?success=true", nil))
	if list.Total != 1 || len(list.Calls) != 1 {
		t.Fatalf("calls = %d, want 1", list.Total)
	}
	call := list.Calls[0]
	if call.PromptKey != "extract.task1.system" || call.ImageRef != "https://example.com/chart.png" || call.SchemaVersion != "task1_v1" {
		t.Errorf("call = %+v, want prompt key, image ref and schema version", call)
	}

	got := decode[endpoints.LLMCallResponse](t, do(t, h, http.MethodGet, "/api/llmcalls/"+call.ID, nil))
	if got.Call == nil || got.Call.ID != call.ID {
		t.Errorf("get call = %+v, want id %s", got.Call, call.ID)
	}

	counts := decode[endpoints.LLMCallCountsResponse](t, do(t, h, http.MethodGet, "/api/llmcalls/counts", nil))
	if counts.Counts["extract.task1.system"] != 1 {
		t.Errorf("counts = %v, want 1 system prompt call", counts.Counts)
	}

	failed := decode[endpoints.LLMCallsResponse](t, do(t, h, http.MethodGet, "/api/llmcalls?success=false", nil))
	if failed.Total != 0 {
		t.Errorf("failed calls = %d, want 0", failed.Total)
	}

	for _, path := range []string{"/api/llmcalls?success=maybe", "/api/llmcalls?limit=x", "/api/llmcalls?after=yesterday"} {
		if rec := do(t, h, http.MethodGet, path, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodGet, "/api/llmcalls/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing call status = %d, want 404", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := newLoadedHandler(t, fixtureMock(t))
	got := decode[endpoints.StatusResponse](t, do(t, h, http.MethodGet, "/status", nil))
	if got.Engine == nil || !got.Engine.Loaded || got.Engine.Replicas != 1 {
		t.Errorf("engine = %+v, want loaded with 1 replica", got.Engine)
	}
	if diff := cmp.Diff([]string{"mock"}, got.Providers); diff != "" {
		t.Errorf("providers mismatch (-want +got):\n%s", diff)
	}
	if got.SchemaVersion != "task1_v1" {
		t.Errorf("SchemaVersion = %q, want task1_v1", got.SchemaVersion)
	}
}

func TestSwaggerEndpoints(t *testing.T) {
	h := newLoadedHandler(t, fixtureMock(t))

	rec := do(t, h, http.MethodGet, "/swagger.json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	doc := decode[map[string]any](t, rec)
	if doc["swagger"] != "2.0" {
		t.Errorf("swagger = %v, want 2.0", doc["swagger"])
	}
	paths, _ := doc["paths"].(map[string]any)
	for _, p := range []string{"/api/extract/url", "/api/extract/file", "/api/extract/batch", "/health"} {
		if _, ok := paths[p]; !ok {
			t.Errorf("swagger paths missing %s", p)
		}
	}

	ui := do(t, h, http.MethodGet, "/swagger", nil)
	if ui.Code != http.StatusOK || !strings.Contains(ui.Body.String(), "swagger-ui") {
		t.Errorf("swagger UI status = %d", ui.Code)
	}
}
