package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
	"github.com/joseph-ayodele/ashwini-cargo/internal/async"
	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/entity"
	"github.com/joseph-ayodele/ashwini-cargo/internal/export"
	"github.com/joseph-ayodele/ashwini-cargo/internal/extract"
	"github.com/joseph-ayodele/ashwini-cargo/internal/numbering"
	"github.com/joseph-ayodele/ashwini-cargo/internal/pipeline"
	"github.com/joseph-ayodele/ashwini-cargo/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const sampleLR = `ASHWINI CARGO
LR No: 19893
Truck/No.: tn81ay3420
Payment Status: To Pay
Consignee: M/s Example Co
1 Steel Coils
Total Freight 1,05,000`

var ist = time.FixedZone("IST", 5*3600+1800)

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) Extract(context.Context, []byte, string) (extract.TextExtractionResult, error) {
	if f.err != nil {
		return extract.TextExtractionResult{}, f.err
	}
	return extract.TextExtractionResult{Text: f.text, RawText: f.text, Method: "image-ocr"}, nil
}

type harness struct {
	router *gin.Engine
	store  *repository.MemoryCounterStore
	scans  repository.ScanRepository
}

func newHarness(t *testing.T, ocr extract.TextExtractor, withQueue bool) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "api.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := repository.NewMemoryCounterStore()
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, ist)
	gen := numbering.NewGenerator(store,
		numbering.WithClock(func() time.Time { return now }),
		numbering.WithLocation(ist),
		numbering.WithLogger(logger),
	)
	scans := repository.NewScanRepository(db, logger)
	pipe := pipeline.NewScanPipeline(ocr, scans, logger)

	deps := Deps{
		Generator: gen,
		Store:     store,
		Pipeline:  pipe,
		Scans:     scans,
		Export:    export.NewService(scans, ist, logger),
		Location:  ist,
		Logger:    logger,
	}
	if withQueue {
		q := async.NewScanQueue(pipe, logger, async.WithWorkers(1))
		t.Cleanup(func() { q.Shutdown(context.Background()) })
		deps.Queue = q
	}
	return &harness{router: NewRouter(deps), store: store, scans: scans}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) upload(t *testing.T, path, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestNumbers_EnquiryAndOrder(t *testing.T) {
	h := newHarness(t, fakeOCR{}, false)

	w := h.do(t, http.MethodPost, "/api/v1/numbers/enquiry", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ENQ-001/14-Mar-25", decode[idResponse](t, w).ID)

	w = h.do(t, http.MethodPost, "/api/v1/numbers/enquiry", `{"date":"2025-03-14"}`)
	assert.Equal(t, "ENQ-002/14-Mar-25", decode[idResponse](t, w).ID)

	w = h.do(t, http.MethodPost, "/api/v1/numbers/enquiry", `{"date":"2025-03-15"}`)
	assert.Equal(t, "ENQ-001/15-Mar-25", decode[idResponse](t, w).ID)

	w = h.do(t, http.MethodPost, "/api/v1/numbers/order", `{}`)
	assert.Equal(t, "ORD-001/Mar-25", decode[idResponse](t, w).ID)
}

func TestNumbers_DailyAndMonthly(t *testing.T) {
	h := newHarness(t, fakeOCR{}, false)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		want   string
	}{
		{"daily custom prefix", "/api/v1/numbers/daily", `{"prefix":"QT","date":"2025-01-12"}`, http.StatusOK, "QT-001/12-Jan-25"},
		{"lower-case prefix shares the upper-case sequence", "/api/v1/numbers/daily", `{"prefix":"qt","date":"2025-01-12"}`, http.StatusOK, "QT-002/12-Jan-25"},
		{"monthly custom prefix", "/api/v1/numbers/monthly", `{"prefix":"INV"}`, http.StatusOK, "INV-001/Mar-25"},
		{"missing prefix", "/api/v1/numbers/daily", `{}`, http.StatusBadRequest, ""},
		{"prefix with separator", "/api/v1/numbers/daily", `{"prefix":"A/B"}`, http.StatusBadRequest, ""},
		{"bad date", "/api/v1/numbers/monthly", `{"prefix":"INV","date":"14/03/2025"}`, http.StatusBadRequest, ""},
		{"malformed body", "/api/v1/numbers/daily", `{"prefix":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(t, http.MethodPost, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.want != "" {
				assert.Equal(t, tt.want, decode[idResponse](t, w).ID)
				return
			}
			assert.Equal(t, common.CodeInvalidInput, decode[errorBody](t, w).Code)
		})
	}

	_, found, err := h.store.Get(context.Background(), "QTCounter_12-Jan-25")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestNumbers_LRSequence(t *testing.T) {
	h := newHarness(t, fakeOCR{}, false)

	w := h.do(t, http.MethodGet, "/api/v1/numbers/lr/next", "")
	assert.Equal(t, "19985", decode[lrResponse](t, w).LRNumber)

	w = h.do(t, http.MethodPost, "/api/v1/numbers/lr", "")
	assert.Equal(t, "19985", decode[lrResponse](t, w).LRNumber)

	w = h.do(t, http.MethodPost, "/api/v1/numbers/lr", `{"seed":50000}`)
	assert.Equal(t, "19986", decode[lrResponse](t, w).LRNumber, "seed only applies to an empty counter")

	w = h.do(t, http.MethodGet, "/api/v1/numbers/lr/next", "")
	assert.Equal(t, "19987", decode[lrResponse](t, w).LRNumber)

	w = h.do(t, http.MethodGet, "/api/v1/numbers/lr/next?seed=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/api/v1/numbers/lr", `{"seed":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnquiryExpiry(t *testing.T) {
	h := newHarness(t, fakeOCR{}, false)

	w := h.do(t, http.MethodPost, "/api/v1/enquiries/expiry", `{"created_at":"2025-03-10T10:00:00+05:30"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[expiryResponse](t, w)
	assert.False(t, got.Expired)
	assert.Equal(t, "Expires in 3 day(s)", got.Countdown)
	assert.True(t, got.ExpiresAt.Equal(time.Date(2025, 3, 17, 10, 0, 0, 0, ist)))

	w = h.do(t, http.MethodPost, "/api/v1/enquiries/expiry", `{"created_at":"2025-03-07T10:00:00+05:30"}`)
	got = decode[expiryResponse](t, w)
	assert.True(t, got.Expired, "exactly seven days old")
	assert.Equal(t, "Expired", got.Countdown)

	w = h.do(t, http.MethodPost, "/api/v1/enquiries/expiry", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScans_SyncUpload(t *testing.T) {
	h := newHarness(t, fakeOCR{text: sampleLR}, false)

	w := h.upload(t, "/api/v1/scans", "lr.jpg", []byte("jpeg-bytes"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	scan := decode[entity.Scan](t, w)
	assert.Equal(t, constants.ScanStatusParsed, scan.Status)
	require.NotNil(t, scan.Record.LRNumber)
	assert.Equal(t, "19893", *scan.Record.LRNumber)
	assert.Equal(t, "TN81AY3420", *scan.Record.VehicleNo)
	assert.Equal(t, constants.PaymentToPay, scan.Record.PaymentMode)
	assert.Equal(t, 105000.0, *scan.Record.TotalFreight)
	assert.Equal(t, "Steel Coils", *scan.Record.Material)

	w = h.do(t, http.MethodGet, "/api/v1/scans/"+scan.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, scan.ID, decode[entity.Scan](t, w).ID)

	w = h.do(t, http.MethodGet, "/api/v1/scans?from=2000-01-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[scanList](t, w).Scans, 1)
}

func TestScans_OCRFailure(t *testing.T) {
	h := newHarness(t, fakeOCR{err: errors.New("tesseract: exit status 1")}, false)

	w := h.upload(t, "/api/v1/scans", "lr.jpg", []byte("jpeg-bytes"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, common.CodeScanFailed, body.Code)
	assert.NotContains(t, body.Error, "tesseract")

	w = h.do(t, http.MethodGet, "/api/v1/scans", "")
	scans := decode[scanList](t, w).Scans
	require.Len(t, scans, 1)
	assert.Equal(t, constants.ScanStatusFailed, scans[0].Status)
}

func TestScans_MissingFile(t *testing.T) {
	h := newHarness(t, fakeOCR{}, false)
	w := h.do(t, http.MethodPost, "/api/v1/scans", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScans_AsyncUpload(t *testing.T) {
	h := newHarness(t, fakeOCR{text: sampleLR}, true)

	w := h.upload(t, "/api/v1/scans?async=true", "lr.png", []byte("png-bytes"))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	accepted := decode[scanAccepted](t, w)
	assert.Equal(t, string(constants.ScanStatusQueued), accepted.Status)
	assert.Equal(t, "/api/v1/scans/"+accepted.ScanID, w.Header().Get("Location"))

	require.Eventually(t, func() bool {
		w := h.do(t, http.MethodGet, "/api/v1/scans/"+accepted.ScanID, "")
		return w.Code == http.StatusOK && decode[entity.Scan](t, w).Status == constants.ScanStatusParsed
	}, 5*time.Second, 20*time.Millisecond)
}

func TestScans_AsyncWithoutQueue(t *testing.T) {
	h := newHarness(t, fakeOCR{text: sampleLR}, false)
	w := h.upload(t, "/api/v1/scans?async=true", "lr.png", []byte("png-bytes"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestScans_GetErrors(t *testing.T) {
	h := newHarness(t, fakeOCR{}, false)

	w := h.do(t, http.MethodGet, "/api/v1/scans/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodGet, "/api/v1/scans/6f1c2d9e-8a55-4c1b-9f5e-2b7d3c4a1e00", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, common.CodeNotFound, decode[errorBody](t, w).Code)

	w = h.do(t, http.MethodGet, "/api/v1/scans?from=2025-03-10&to=2025-03-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScans_Correction(t *testing.T) {
	h := newHarness(t, fakeOCR{text: "LR No: 19893\nsmudged"}, false)

	w := h.upload(t, "/api/v1/scans", "lr.jpg", []byte("jpeg-bytes"))
	require.Equal(t, http.StatusOK, w.Code)
	scan := decode[entity.Scan](t, w)
	assert.True(t, scan.NeedsReview)
	path := "/api/v1/scans/" + scan.ID.String() + "/correction"

	invalid := []string{
		`{"lr_number":"19-893"}`,
		`{"payment_status":"Cash"}`,
		`{"total_freight":-5}`,
		`{"colour":"red"}`,
	}
	for _, body := range invalid {
		w := h.do(t, http.MethodPut, path, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, common.CodeValidation, decode[errorBody](t, w).Code, body)
	}

	w = h.do(t, http.MethodPut, path, `{
		"lr_number": "19893",
		"vehicle_no": "tn81ay3420",
		"payment_status": "Paid",
		"total_freight": 42000,
		"consignee_name": " Example Traders ",
		"material": null
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[entity.Scan](t, w)
	assert.Equal(t, constants.ScanStatusConfirmed, got.Status)
	assert.False(t, got.NeedsReview)
	assert.Equal(t, "TN81AY3420", *got.Record.VehicleNo)
	assert.Equal(t, "Example Traders", *got.Record.ConsigneeName)
	assert.Equal(t, constants.PaymentPaid, got.Record.PaymentMode)
	assert.Nil(t, got.Record.Material)
	assert.Contains(t, got.Record.RawText, "smudged")
}

func TestScans_Export(t *testing.T) {
	h := newHarness(t, fakeOCR{text: sampleLR}, false)
	require.Equal(t, http.StatusOK, h.upload(t, "/api/v1/scans", "lr.jpg", []byte("x")).Code)

	w := h.do(t, http.MethodGet, "/api/v1/scans/export.xlsx", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "lr-scans-20250314.xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip")
}

func TestImportCounters(t *testing.T) {
	h := newHarness(t, fakeOCR{}, false)
	h.store.SetRaw("lastLRNumber", "20100")

	w := h.do(t, http.MethodPost, "/api/v1/counters/import", `{
		"enquiryCounter_14-Mar-25": "7",
		"orderCounter_Mar-25": 3,
		"lastLRNumber": "19990",
		"orderCounter_Feb-25": "NaN",
		"theme": "dark"
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[repository.ImportReport](t, w)
	assert.Equal(t, int64(7), report.Imported["enquiryCounter_14-Mar-25"])
	assert.Equal(t, int64(3), report.Imported["orderCounter_Mar-25"])
	assert.Equal(t, int64(20100), report.Imported["lastLRNumber"], "import never lowers")
	assert.Equal(t, []string{"orderCounter_Feb-25"}, report.Skipped)
	assert.Equal(t, []string{"theme"}, report.Ignored)

	w = h.do(t, http.MethodPost, "/api/v1/numbers/enquiry", "")
	assert.Equal(t, "ENQ-008/14-Mar-25", decode[idResponse](t, w).ID)

	w = h.do(t, http.MethodPost, "/api/v1/counters/import", `[]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	h := newHarness(t, fakeOCR{}, false)

	w := h.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ashwini_http_requests_total")
}
