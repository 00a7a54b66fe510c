package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"printer-docs-backend/internal/apperr"
	"printer-docs-backend/internal/db"
	"printer-docs-backend/internal/dipswitch"
	"printer-docs-backend/internal/importer"
	"printer-docs-backend/internal/metrics"
	"printer-docs-backend/internal/model"
	"printer-docs-backend/internal/mw"
	"printer-docs-backend/internal/normalize"
	"printer-docs-backend/internal/search"
	"printer-docs-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T, maxUpload int64) *gin.Engine {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := gorm.Open(db.OpenSQLite("file:api_"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.EnsureSchema(gdb))

	s := store.NewGormStore(gdb, store.RetryPolicy{})
	log := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	namer := normalize.Default()
	cache := mw.NewResponseCache(time.Minute)

	h := NewHandler(s,
		search.NewService(s, search.Options{DefaultLimit: 50, PartsConcurrency: 2}, log, m),
		importer.NewService(s, namer, log, m),
		dipswitch.NewService(s, namer, log, m),
		cache, log)
	return NewRouter(h, RouterOptions{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		RequestTimeout:  5 * time.Second,
		MaxUploadBytes:  maxUpload,
		Cache:           cache,
		Metrics:         m,
		Gatherer:        reg,
		Log:             log,
	})
}

func do(r *gin.Engine, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	r.ServeHTTP(w, req)
	return w
}

func multipartBody(t *testing.T, fields map[string]string, filename string, file []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mwr := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mwr.WriteField(k, v))
	}
	if file != nil {
		fw, err := mwr.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mwr.Close())
	return buf.Bytes(), mwr.FormDataContentType()
}

func TestGetHealth(t *testing.T) {
	r := setupRouter(t, 1<<20)
	w := do(r, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestGetErrors_BadRequests(t *testing.T) {
	r := setupRouter(t, 1<<20)

	testCases := []struct {
		target string
		body   string
	}{
		{"/api/errors?model=C4080&limit=abc", `{"error":"limit must be a positive integer"}`},
		{"/api/errors?model=C4080&limit=0", `{"error":"limit must be a positive integer"}`},
		{"/api/errors", `{"error":"missing required parameter: model"}`},
		{"/api/dipswitches?switch=x", `{"error":"switch must be an integer"}`},
		{"/api/dipswitches?model=C4080&bit=1.5", `{"error":"bit must be an integer"}`},
	}
	for _, tc := range testCases {
		t.Run(tc.target, func(t *testing.T) {
			w := do(r, http.MethodGet, tc.target, nil, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestPostImport_Errors(t *testing.T) {
	r := setupRouter(t, 512)

	body, ct := multipartBody(t, map[string]string{"model": ""}, "a.csv", []byte("Code\n1\n"))
	w := do(r, http.MethodPost, "/api/import", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Model name is required"}`, w.Body.String())

	body, ct = multipartBody(t, map[string]string{"model": "C4080"}, "", nil)
	w = do(r, http.MethodPost, "/api/import", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"file is required"}`, w.Body.String())

	big := []byte("Code\n" + strings.Repeat("1234567890\n", 100))
	body, ct = multipartBody(t, map[string]string{"model": "C4080"}, "a.csv", big)
	w = do(r, http.MethodPost, "/api/import", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"request body too large"}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/import", []byte("model=C4080"), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportFlushesCachedSearch(t *testing.T) {
	r := setupRouter(t, 1<<20)

	w := do(r, http.MethodGet, "/api/errors?model=C4080", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	body, ct := multipartBody(t, map[string]string{"model": "Konica Minolta C4080"}, "c.csv",
		[]byte("Code,Cause\nC-0101,Heater\nC-0102,Lamp\n"))
	w = do(r, http.MethodPost, "/api/import", body, ct)
	require.Equal(t, http.StatusOK, w.Code)

	var report map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, true, report["success"])
	assert.Equal(t, "Imported 2 error codes for C4080", report["message"])
	assert.Equal(t, float64(0), report["skipped"])
	assert.Equal(t, []any{}, report["skipped_rows"])

	w = do(r, http.MethodGet, "/api/errors?model=C4080&code=0101", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var codes []model.ErrorCode
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &codes))
	require.Len(t, codes, 1)
	assert.Equal(t, "C-0101", codes[0].Code)
	assert.NotNil(t, codes[0].Parts)

	w = do(r, http.MethodGet, "/api/errors?model=C4080", nil, "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &codes))
	assert.Len(t, codes, 2)
}

func TestErrorPartsEndpoints(t *testing.T) {
	r := setupRouter(t, 1<<20)

	w := do(r, http.MethodPut, "/api/errors/not-a-uuid/parts", []byte(`{"parts":[]}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, "/api/errors/"+uuid.NewString()+"/parts", []byte(`{"parts":[]}`), "application/json")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/parts", []byte(`{"description":"no code"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/parts", []byte(`{"oem_code":"A00J-1","description":"Fuser unit"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	var part model.SparePart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &part))
	assert.NotEqual(t, uuid.Nil, part.ID)

	body, ct := multipartBody(t, map[string]string{"model": "C4080"}, "c.csv", []byte("Code\n3501\n"))
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/import", body, ct).Code)
	w = do(r, http.MethodGet, "/api/errors?model=C4080&summary=1", nil, "")
	var codes []model.ErrorCode
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &codes))
	require.Len(t, codes, 1)

	target := "/api/errors/" + codes[0].ID.String() + "/parts"
	dup := `{"parts":[{"part_id":"` + part.ID.String() + `"},{"part_id":"` + part.ID.String() + `"}]}`
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, target, []byte(dup), "application/json").Code)

	w = do(r, http.MethodPut, target, []byte(`{"parts":[{"part_id":"`+part.ID.String()+`","ranking":3}]}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	var parts []model.SparePart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parts))
	require.Len(t, parts, 1)
	assert.Equal(t, 3, parts[0].Ranking)

	w = do(r, http.MethodGet, "/api/errors?model=C4080", nil, "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &codes))
	require.Len(t, codes[0].Parts, 1)
	assert.Equal(t, "A00J-1", codes[0].Parts[0].OemCode)
}

func TestDipSwitchEndpoints(t *testing.T) {
	r := setupRouter(t, 1<<20)

	w := do(r, http.MethodPost, "/api/import-dipsw", []byte(`{"not":"an array"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	rows := `[
		{"model_name":"Konica Minolta C4065","switch_number":2,"bit_number":0,"function_name":"B"},
		{"model_name":"Konica Minolta C4065","switch_number":1,"bit_number":7,"function_name":"A","default_val":"0"}
	]`
	w = do(r, http.MethodPost, "/api/import-dipsw", []byte(rows), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `"Imported"`, w.Body.String())

	w = do(r, http.MethodGet, "/api/dipswitches?model=C4065", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var switches []model.DipSwitch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &switches))
	require.Len(t, switches, 2)
	assert.Equal(t, 1, switches[0].SwitchNumber)
	assert.Equal(t, "C4065", switches[0].ModelName)

	w = do(r, http.MethodPost, "/api/import-dipsw", []byte(`[]`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodGet, "/api/dipswitches?model=C4065&switch=2&bit=0", nil, "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &switches))
	require.Len(t, switches, 1)
	assert.Equal(t, "B", *switches[0].FunctionName)

	w = do(r, http.MethodDelete, "/api/dipswitches?model=C4065", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":2}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/dipswitches?model=C4065", nil, "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	r := setupRouter(t, 1<<20)
	do(r, http.MethodGet, "/api/printers", nil, "")

	w := do(r, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `printerdocs_http_requests_total{method="GET",route="/api/printers",status="200"} 1`)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(apperr.Input("bad")))
	assert.Equal(t, http.StatusInternalServerError, statusOf(apperr.Storage("op", errors.New("down"))))
	assert.Equal(t, http.StatusNotFound, statusOf(store.ErrNotFound))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusOf(&http.MaxBytesError{Limit: 1}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusOf(fmt.Errorf("multipart: NextPart: %w", &http.MaxBytesError{Limit: 1})))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("request body too large")))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("other")))
}
