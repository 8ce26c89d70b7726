package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/deepscan-backend/internal/database"
	"github.com/sandeepkv93/deepscan-backend/internal/detector"
	"github.com/sandeepkv93/deepscan-backend/internal/health"
	"github.com/sandeepkv93/deepscan-backend/internal/http/handler"
	"github.com/sandeepkv93/deepscan-backend/internal/http/middleware"
	"github.com/sandeepkv93/deepscan-backend/internal/http/router"
	"github.com/sandeepkv93/deepscan-backend/internal/paymentgateway"
	"github.com/sandeepkv93/deepscan-backend/internal/repository"
	"github.com/sandeepkv93/deepscan-backend/internal/security"
	"github.com/sandeepkv93/deepscan-backend/internal/service"
)

const (
	testIdentitySecret = "integration-identity-secret-0123456789"
	testIdentityIssuer = "deepscan-identity"
	testAudience       = "deepscan-api"
	testPaystackSecret = "sk_test_integration"
	testDetectorKey    = "det-integration-key"
	testUnitPrice      = 50000
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServerOptions struct {
	trialCredits int
	scanRPM      int
	media        service.MediaStore
}

type testServer struct {
	baseURL  string
	client   *http.Client
	db       *gorm.DB
	detector *fakeDetector
	paystack *fakePaystack
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithOptions(t, testServerOptions{trialCredits: 5})
}

func newTestServerWithOptions(t *testing.T, opts testServerOptions) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	det := newFakeDetector(t)
	pay := newFakePaystack(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	userRepo := repository.NewUserRepository(db)
	ledger := service.NewCreditLedger(userRepo)
	cache := service.NewResponseCache(service.NewInMemoryCacheStore(), service.ResponseCacheConfig{
		ListTTL:    30 * time.Second,
		ItemTTL:    5 * time.Minute,
		ProfileTTL: 30 * time.Second,
	}, log)

	detectorClient := detector.NewHTTPClient(detector.Config{
		BaseURL:       det.srv.URL,
		APIKey:        testDetectorKey,
		Timeout:       5 * time.Second,
		RatePerMinute: 6000,
		Burst:         10,

		AllowPrivateMediaURLs: true,
	}, log)
	scheduler := service.NewBatchScheduler(detectorClient, 3, log)
	scanSvc := service.NewScanService(scheduler, repository.NewVerificationResultRepository(db), ledger, opts.media, cache, 10, log)

	gateway := paymentgateway.NewPaystackClient(pay.srv.URL, testPaystackSecret, 5*time.Second)
	guard := service.NewInMemorySettlementGuard(service.SettlementGuardPolicy{FreeAttempts: 5})
	paySvc := service.NewPaymentService(gateway, repository.NewPaymentRepository(db), userRepo, cache, guard, service.PaymentConfig{
		Currency:      "NGN",
		UnitPrice:     testUnitPrice,
		MaxCredits:    1000,
		CallbackURL:   "http://localhost:3000/billing/callback",
		WebhookSecret: testPaystackSecret,
	}, log)
	userSvc := service.NewUserService(userRepo, ledger, cache, opts.trialCredits)

	idem := middleware.NewIdempotencyMiddleware(service.NewDBIdempotencyStore(db), time.Hour)

	scanRPM := opts.scanRPM
	if scanRPM == 0 {
		scanRPM = 1000
	}
	h := router.NewRouter(router.Dependencies{
		ScanHandler:      handler.NewScanHandler(scanSvc, 8<<20),
		PaymentHandler:   handler.NewPaymentHandler(paySvc, log),
		UserHandler:      handler.NewUserHandler(userSvc),
		IdentityVerifier: security.NewIdentityVerifier(testIdentitySecret, testIdentityIssuer, testAudience),
		UserResolver:     userSvc,
		CORSOrigins:      []string{"http://localhost:3000"},
		APIRateLimitRPM:  1000,
		ScanRateLimitRPM: scanRPM,
		ScanUploadLimit:  8 << 20,
		Idempotency:      idem.Middleware,
		Readiness:        health.NewProbeRunner(time.Second, 0, health.NewDBChecker(db)),
		EnableOTelHTTP:   false,
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testServer{
		baseURL:  srv.URL,
		client:   srv.Client(),
		db:       db,
		detector: det,
		paystack: pay,
	}
}

// tokenFor signs an identity token the way the external provider would.
func tokenFor(t *testing.T, subject, email string) string {
	t.Helper()
	tok, err := security.SignIdentityToken(testIdentitySecret, testIdentityIssuer, testAudience, subject, email, "Test "+subject, time.Hour)
	if err != nil {
		t.Fatalf("sign identity token: %v", err)
	}
	return tok
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, apiEnvelope) {
	t.Helper()
	resp, raw := doRawText(t, client, method, url, body, headers)
	var env apiEnvelope
	if len(raw) > 0 {
		_ = json.Unmarshal([]byte(raw), &env)
	}
	return resp, env
}

func doRawText(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, string) {
	t.Helper()
	var payload []byte
	switch b := body.(type) {
	case nil:
	case []byte:
		payload = b
	default:
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return sendRequest(t, client, req)
}

func sendRequest(t *testing.T, client *http.Client, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.String()
}

func uploadScanMultipart(t *testing.T, client *http.Client, url, token, fileName string, content []byte) (*http.Response, apiEnvelope, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, raw := sendRequest(t, client, req)
	var env apiEnvelope
	_ = json.Unmarshal([]byte(raw), &env)
	return resp, env, raw
}

func decodeData[T any](t *testing.T, env apiEnvelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode envelope data: %v (raw=%s)", err, string(env.Data))
	}
	return out
}

type profileView struct {
	ID      uint   `json:"id"`
	Email   string `json:"email"`
	Plan    string `json:"plan"`
	Credits int    `json:"credits"`
}

func mustProfile(t *testing.T, ts *testServer, token string) profileView {
	t.Helper()
	resp, env := doJSON(t, ts.client, http.MethodGet, ts.baseURL+"/api/v1/me", nil, bearer(token))
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("get profile: status=%d env=%+v", resp.StatusCode, env)
	}
	return decodeData[profileView](t, env)
}

// pngFixture is enough of a PNG for content sniffing.
func pngFixture() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0x01}, 64)...)
}

type detectorVerdict struct {
	status int
	body   map[string]any
}

// fakeDetector serves both the detection API and the media URLs it is asked
// to analyse. The verdict is chosen by the media file name.
type fakeDetector struct {
	srv        *httptest.Server
	detections atomic.Int64
}

func newFakeDetector(t *testing.T) *fakeDetector {
	t.Helper()
	fd := &fakeDetector{}
	r := chi.NewRouter()
	r.Post("/v1/detections", fd.detect)
	r.Head("/media/{name}", serveMedia)
	r.Get("/media/{name}", serveMedia)
	fd.srv = httptest.NewServer(r)
	t.Cleanup(fd.srv.Close)
	return fd
}

func (fd *fakeDetector) mediaURL(name string) string { return fd.srv.URL + "/media/" + name }

func serveMedia(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "name") == "missing.jpg" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
}

func (fd *fakeDetector) detect(w http.ResponseWriter, r *http.Request) {
	fd.detections.Add(1)
	if r.Header.Get("X-API-Key") != testDetectorKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	name := "upload"
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var in struct {
			URL       string `json:"url"`
			MediaType string `json:"media_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.URL == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		name = path.Base(in.URL)
	} else if err := r.ParseMultipartForm(8 << 20); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	v := verdictFor(name)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(v.status)
	if v.body != nil {
		_ = json.NewEncoder(w).Encode(v.body)
	}
}

func verdictFor(name string) detectorVerdict {
	reply := func(status string, score float64) detectorVerdict {
		return detectorVerdict{status: http.StatusOK, body: map[string]any{
			"status":     status,
			"score":      score,
			"request_id": "det-" + name,
			"models": []map[string]any{
				{"name": "face-swap", "status": status, "score": score},
			},
		}}
	}
	switch name {
	case "deepfake.jpg":
		return reply("manipulated", 0.91)
	case "suspicious.jpg":
		return reply("manipulated", 0.31)
	case "outage.jpg":
		return detectorVerdict{status: http.StatusServiceUnavailable}
	default:
		return reply("authentic", 0.12)
	}
}

type fakeTransaction struct {
	Reference string
	Email     string
	Amount    int64
	Currency  string
	Status    string
	Metadata  paymentgateway.TransactionMetadata
}

// fakePaystack keeps initialized transactions in memory. Tests move them to
// success (or tamper with them) before asking the API to settle.
type fakePaystack struct {
	srv         *httptest.Server
	mu          sync.Mutex
	txs         map[string]*fakeTransaction
	initialized atomic.Int64
}

func newFakePaystack(t *testing.T) *fakePaystack {
	t.Helper()
	fp := &fakePaystack{txs: make(map[string]*fakeTransaction)}
	r := chi.NewRouter()
	r.Post("/transaction/initialize", fp.initialize)
	r.Get("/transaction/verify/{reference}", fp.verify)
	fp.srv = httptest.NewServer(r)
	t.Cleanup(fp.srv.Close)
	return fp
}

func (fp *fakePaystack) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+testPaystackSecret
}

func (fp *fakePaystack) initialize(w http.ResponseWriter, r *http.Request) {
	if !fp.authorized(r) {
		writePaystack(w, http.StatusUnauthorized, false, "invalid key", nil)
		return
	}
	var in struct {
		Email     string                             `json:"email"`
		Amount    int64                              `json:"amount"`
		Currency  string                             `json:"currency"`
		Reference string                             `json:"reference"`
		Metadata  paymentgateway.TransactionMetadata `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Reference == "" {
		writePaystack(w, http.StatusBadRequest, false, "invalid payload", nil)
		return
	}
	fp.initialized.Add(1)
	fp.mu.Lock()
	fp.txs[in.Reference] = &fakeTransaction{
		Reference: in.Reference,
		Email:     in.Email,
		Amount:    in.Amount,
		Currency:  in.Currency,
		Status:    "abandoned",
		Metadata:  in.Metadata,
	}
	fp.mu.Unlock()
	writePaystack(w, http.StatusOK, true, "Authorization URL created", map[string]any{
		"authorization_url": "https://checkout.paystack.test/" + in.Reference,
		"access_code":       "ac_" + in.Reference,
		"reference":         in.Reference,
	})
}

func (fp *fakePaystack) verify(w http.ResponseWriter, r *http.Request) {
	if !fp.authorized(r) {
		writePaystack(w, http.StatusUnauthorized, false, "invalid key", nil)
		return
	}
	fp.mu.Lock()
	tx, ok := fp.txs[chi.URLParam(r, "reference")]
	var snapshot fakeTransaction
	if ok {
		snapshot = *tx
	}
	fp.mu.Unlock()
	if !ok {
		writePaystack(w, http.StatusNotFound, false, "Transaction reference not found", nil)
		return
	}
	writePaystack(w, http.StatusOK, true, "Verification successful", map[string]any{
		"reference": snapshot.Reference,
		"status":    snapshot.Status,
		"amount":    snapshot.Amount,
		"currency":  snapshot.Currency,
		"metadata":  snapshot.Metadata,
		"customer":  map[string]any{"email": snapshot.Email},
	})
}

// complete marks reference as paid, after applying any tampering.
func (fp *fakePaystack) complete(t *testing.T, reference string, mutate func(*fakeTransaction)) {
	t.Helper()
	fp.mu.Lock()
	defer fp.mu.Unlock()
	tx, ok := fp.txs[reference]
	if !ok {
		t.Fatalf("unknown paystack reference %q", reference)
	}
	tx.Status = paymentgateway.StatusSuccess
	if mutate != nil {
		mutate(tx)
	}
}

func writePaystack(w http.ResponseWriter, status int, ok bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": ok, "message": message, "data": data})
}
