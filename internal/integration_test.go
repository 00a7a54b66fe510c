package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"printer-docs-backend/internal/api"
	"printer-docs-backend/internal/db"
	"printer-docs-backend/internal/dipswitch"
	"printer-docs-backend/internal/importer"
	"printer-docs-backend/internal/metrics"
	"printer-docs-backend/internal/model"
	"printer-docs-backend/internal/mw"
	"printer-docs-backend/internal/normalize"
	"printer-docs-backend/internal/reconcile"
	"printer-docs-backend/internal/search"
	"printer-docs-backend/internal/store"
)

type stack struct {
	db     *gorm.DB
	store  store.Store
	router *gin.Engine
	rec    *reconcile.Reconciler
}

func newStack(t *testing.T, name string) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := gorm.Open(db.OpenSQLite("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to the in-memory database")
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.EnsureSchema(testDB))

	s := store.NewGormStore(testDB, store.RetryPolicy{})
	log := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	namer := normalize.Default()
	cache := mw.NewResponseCache(time.Minute)

	h := api.NewHandler(s,
		search.NewService(s, search.Options{DefaultLimit: 50, PartsConcurrency: 4}, log, m),
		importer.NewService(s, namer, log, m),
		dipswitch.NewService(s, namer, log, m),
		cache, log)
	router := api.NewRouter(h, api.RouterOptions{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		RequestTimeout:  5 * time.Second,
		MaxUploadBytes:  1 << 20,
		Cache:           cache,
		Metrics:         m,
		Gatherer:        reg,
		Log:             log,
	})

	rec := reconcile.New(s, namer, reconcile.Options{
		CanonicalModels:         []string{"C4080", "C4070", "C4065"},
		NormalizeDipSwitchNames: true,
		DedupeStarredCodes:      true,
	}, log, m)

	return &stack{db: testDB, store: s, router: router, rec: rec}
}

func (s *stack) request(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	contentType := ""
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		contentType = "application/json"
	}
	req := httptest.NewRequest(method, target, &buf)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *stack) upload(t *testing.T, modelName, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mwr := multipart.NewWriter(&buf)
	require.NoError(t, mwr.WriteField("model", modelName))
	fw, err := mwr.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mwr.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mwr.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func codes(list []model.ErrorCode) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Code)
	}
	return out
}

// TestDocumentationLifecycle drives a catalogue from legacy duplicates through
// reconciliation, import, part linking and DIP-switch maintenance over HTTP.
func TestDocumentationLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newStack(t, "lifecycle")

	// Legacy rows written before names were normalized at import.
	legacy := model.Printer{ModelName: "Konica Minolta C4080"}
	require.NoError(t, st.db.Create(&legacy).Error)
	require.NoError(t, st.db.Create(&[]model.ErrorCode{
		{PrinterID: legacy.ID, Code: "C-2557"},
		{PrinterID: legacy.ID, Code: "3501"},
		{PrinterID: legacy.ID, Code: "3501*"},
	}).Error)
	require.NoError(t, st.db.Create(&[]model.DipSwitch{
		{ModelName: "KonicaMinolta C4080", SwitchNumber: 1, BitNumber: 0},
	}).Error)

	t.Run("Reconcile merges the legacy printer", func(t *testing.T) {
		res, err := st.rec.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.PrintersMerged)
		assert.Equal(t, int64(1), res.StarredDeleted)

		w := st.request(t, http.MethodGet, "/api/printers", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var names []string
		for _, p := range decode[[]model.Printer](t, w) {
			names = append(names, p.ModelName)
		}
		assert.Equal(t, []string{"C4065", "C4070", "C4080"}, names)
	})

	t.Run("Import adds codes to the canonical printer", func(t *testing.T) {
		csv := "Code,Classification,Cause,Measures to take when an alert occurs\n" +
			"C-2557,Alert,Toner low,Replace toner\n" +
			"01-01,Jam,Paper jam,Open tray\n"
		w := st.upload(t, "Konica Minolta C4080", "codes.csv", csv)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		report := decode[map[string]any](t, w)
		assert.Equal(t, true, report["success"])
		assert.Equal(t, "C4080", report["model"])
		assert.EqualValues(t, 2, report["upserted"])
		assert.EqualValues(t, 0, report["skipped"])

		w = st.request(t, http.MethodGet, "/api/errors?model=C4080", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"01-01", "3501", "C-2557"}, codes(decode[[]model.ErrorCode](t, w)))
	})

	t.Run("Search matches code prefixes", func(t *testing.T) {
		w := st.request(t, http.MethodGet, "/api/errors?model=C4080&code=c2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		found := decode[[]model.ErrorCode](t, w)
		require.Len(t, found, 1)
		assert.Equal(t, "C-2557", found[0].Code)
		require.NotNil(t, found[0].Cause)
		assert.Equal(t, "Toner low", *found[0].Cause)

		w = st.request(t, http.MethodGet, "/api/errors?model=C4080&code=0101", nil)
		assert.Equal(t, []string{"01-01"}, codes(decode[[]model.ErrorCode](t, w)))
	})

	t.Run("Linked parts are returned in ranking order", func(t *testing.T) {
		w := st.request(t, http.MethodPost, "/api/parts", map[string]any{"oem_code": "A1UD-R7", "description": "Toner"})
		require.Equal(t, http.StatusOK, w.Code)
		toner := decode[model.SparePart](t, w)
		w = st.request(t, http.MethodPost, "/api/parts", map[string]any{"oem_code": "A0ED-R7", "description": "Drum"})
		require.Equal(t, http.StatusOK, w.Code)
		drum := decode[model.SparePart](t, w)

		w = st.request(t, http.MethodGet, "/api/errors?model=C4080&code=C-2557", nil)
		target := decode[[]model.ErrorCode](t, w)
		require.Len(t, target, 1)
		assert.Empty(t, target[0].Parts)

		w = st.request(t, http.MethodPut, "/api/errors/"+target[0].ID.String()+"/parts", map[string]any{
			"parts": []map[string]any{
				{"part_id": toner.ID, "ranking": 2},
				{"part_id": drum.ID, "ranking": 1},
			},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = st.request(t, http.MethodGet, "/api/errors?model=C4080&code=C-2557", nil)
		target = decode[[]model.ErrorCode](t, w)
		require.Len(t, target, 1)
		require.Len(t, target[0].Parts, 2)
		assert.Equal(t, "A0ED-R7", target[0].Parts[0].OemCode)
		assert.Equal(t, 1, target[0].Parts[0].Ranking)
		assert.Equal(t, "A1UD-R7", target[0].Parts[1].OemCode)

		w = st.request(t, http.MethodGet, "/api/errors?model=C4080&code=C-2557&summary=1", nil)
		summary := decode[[]map[string]any](t, w)
		require.Len(t, summary, 1)
		assert.Equal(t, []any{}, summary[0]["parts"])
	})

	t.Run("DIP switches are replaced per model", func(t *testing.T) {
		rows := []map[string]any{
			{"model_name": "Konica Minolta C4080", "switch_number": 2, "bit_number": 1, "function_name": "Duplex"},
			{"model_name": "Konica Minolta C4080", "switch_number": 1, "bit_number": 3, "setting_0": "Off", "setting_1": "On"},
		}
		w := st.request(t, http.MethodPost, "/api/import-dipsw", rows)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = st.request(t, http.MethodGet, "/api/dipswitches?model=KonicaMinolta%20C4080", nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decode[[]model.DipSwitch](t, w)
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].SwitchNumber)
		assert.Equal(t, 3, got[0].BitNumber)
		assert.Equal(t, 2, got[1].SwitchNumber)

		w = st.request(t, http.MethodDelete, "/api/dipswitches?model=C4080", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"deleted":2}`, w.Body.String())

		name := "C4080"
		left, err := st.store.QueryDipSwitches(ctx, store.DipSwitchFilter{Model: &name})
		require.NoError(t, err)
		assert.Empty(t, left)
	})

	t.Run("A second reconcile is a no-op", func(t *testing.T) {
		res, err := st.rec.Run(ctx)
		require.NoError(t, err)
		assert.False(t, res.Changed())
	})
}
