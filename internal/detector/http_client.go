package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"
)

const (
	maxResponseBytes  = 1 << 20
	maxProbeRedirects = 5
)

var (
	errNonPublicAddress = errors.New("media url resolves to a non-public address")
	errRateBudget       = errors.New("rate limit budget exhausted before deadline")
)

type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerMinute int
	Burst         int

	// AllowPrivateMediaURLs lets media URLs resolve to loopback and private
	// ranges. Local development only.
	AllowPrivateMediaURLs bool
}

type HTTPClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	probe   *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewHTTPClient(cfg Config, logger *slog.Logger) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 60
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		probe:   newProbeClient(cfg.AllowPrivateMediaURLs),
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), cfg.Burst),
		logger:  logger,
	}
}

type detectionResponse struct {
	Status    string               `json:"status"`
	Score     *float64             `json:"score"`
	Models    []domain.ModelResult `json:"models"`
	RequestID string               `json:"request_id"`
}

func (c *HTTPClient) Detect(ctx context.Context, media Media) (*Result, error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		observability.RecordDetectorRequest(ctx, outcome, time.Since(start))
	}()

	res, err := c.detect(ctx, media)
	if err != nil {
		outcome = outcomeFor(err)
		c.logger.WarnContext(ctx, "detector request failed",
			"file_name", media.FileName,
			"media_type", media.Type,
			"outcome", outcome,
			"error", err,
		)
		return nil, err
	}
	return res, nil
}

func (c *HTTPClient) detect(ctx context.Context, media Media) (*Result, error) {
	if err := validateMedia(media); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if media.IsRemote() {
		if err := c.checkReachable(ctx, media.URL); err != nil {
			return nil, err
		}
	}
	// Wait refuses up front when the next token lands past the deadline, so
	// no provider call was made.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrProviderUnavailable, errRateBudget, err)
	}

	req, err := c.newDetectionRequest(ctx, media)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var decoded detectionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProviderUnavailable, err)
	}
	if decoded.Score == nil || *decoded.Score < 0 || *decoded.Score > 1 {
		return nil, fmt.Errorf("%w: score missing or out of range", ErrProviderUnavailable)
	}
	return &Result{
		OverallScore: *decoded.Score,
		Status:       parseStatus(decoded.Status),
		Models:       decoded.Models,
		RequestID:    decoded.RequestID,
		Raw:          body,
	}, nil
}

func (c *HTTPClient) newDetectionRequest(ctx context.Context, media Media) (*http.Request, error) {
	endpoint := c.baseURL + "/v1/detections"
	var (
		body        bytes.Buffer
		contentType string
	)
	if media.IsRemote() {
		if err := json.NewEncoder(&body).Encode(map[string]string{
			"url":        media.URL,
			"media_type": string(media.Type),
		}); err != nil {
			return nil, err
		}
		contentType = "application/json"
	} else {
		mw := multipart.NewWriter(&body)
		if err := mw.WriteField("media_type", string(media.Type)); err != nil {
			return nil, err
		}
		part, err := mw.CreateFormFile("file", fileNameOrDefault(media.FileName))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(media.Data); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		contentType = mw.FormDataContentType()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return req, nil
}

func (c *HTTPClient) checkReachable(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMediaUnreachable, err)
	}
	resp, err := c.probe.Do(req)
	if err != nil {
		if errors.Is(err, errNonPublicAddress) {
			return fmt.Errorf("%w: %v", ErrMalformedMedia, errNonPublicAddress)
		}
		if isTimeout(err) {
			return fmt.Errorf("%w: probing media url: %v", ErrProviderTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrMediaUnreachable, err)
	}
	_ = resp.Body.Close()
	// Some origins refuse HEAD but serve GET; let the provider decide.
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusMethodNotAllowed {
		return fmt.Errorf("%w: status %d", ErrMediaUnreachable, resp.StatusCode)
	}
	return nil
}

// newProbeClient builds the client used for reachability checks on
// user-supplied URLs. Proxies are bypassed so the dial guard always sees the
// real destination.
func newProbeClient(allowPrivate bool) *http.Client {
	if allowPrivate {
		return guardedProbeClient(nil)
	}
	return guardedProbeClient(publicOnly)
}

// guardedProbeClient runs guard against the resolved address of every
// connection, redirect hops included.
func guardedProbeClient(guard func(netip.AddrPort) error) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if guard != nil {
		dialer.Control = func(_, address string, _ syscall.RawConn) error {
			ap, err := netip.ParseAddrPort(address)
			if err != nil {
				return fmt.Errorf("%w: %s", errNonPublicAddress, address)
			}
			return guard(ap)
		}
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{
		Transport: otelhttp.NewTransport(transport),
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxProbeRedirects {
				return fmt.Errorf("stopped after %d redirects", maxProbeRedirects)
			}
			return nil
		},
	}
}

func publicOnly(ap netip.AddrPort) error {
	if !isPublicAddr(ap.Addr()) {
		return fmt.Errorf("%w: %s", errNonPublicAddress, ap.Addr())
	}
	return nil
}

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func isPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsUnspecified(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast(),
		sharedAddressSpace.Contains(addr):
		return false
	}
	return true
}

func validateMedia(media Media) error {
	if _, ok := domain.ParseMediaType(string(media.Type)); !ok {
		return fmt.Errorf("%w: unsupported media type %q", ErrMalformedMedia, media.Type)
	}
	if media.IsRemote() {
		if !strings.HasPrefix(media.URL, "http://") && !strings.HasPrefix(media.URL, "https://") {
			return fmt.Errorf("%w: url must be http or https", ErrMalformedMedia)
		}
		return nil
	}
	if len(media.Data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrMalformedMedia)
	}
	detected := mimetype.Detect(media.Data)
	for m := detected; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), string(media.Type)+"/") {
			return nil
		}
	}
	return fmt.Errorf("%w: detected %s for declared %s", ErrMalformedMedia, detected.String(), media.Type)
}

func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusBadRequest, code == http.StatusUnsupportedMediaType, code == http.StatusUnprocessableEntity,
		code == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: provider rejected media with status %d", ErrMalformedMedia, code)
	default:
		return fmt.Errorf("%w: provider status %d", ErrProviderUnavailable, code)
	}
}

func classifyTransportErr(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, errRateBudget):
		return "rate_budget"
	case errors.Is(err, ErrMalformedMedia):
		return "malformed_media"
	case errors.Is(err, ErrMediaUnreachable):
		return "media_unreachable"
	case errors.Is(err, ErrProviderTimeout):
		return "timeout"
	default:
		return "unavailable"
	}
}

func fileNameOrDefault(name string) string {
	if strings.TrimSpace(name) == "" {
		return "upload"
	}
	return name
}
