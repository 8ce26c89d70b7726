package obscheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/deepscan-backend/internal/tools/common"
	"github.com/sandeepkv93/deepscan-backend/internal/tools/loadgen"
)

const exitCheckFailed = 4

type options struct {
	grafanaURL      string
	grafanaUser     string
	grafanaPassword string
	prometheusID    int
	lokiID          int
	tempoID         int
	serviceName     string
	window          time.Duration
	settle          time.Duration
	ci              bool
	baseURL         string
	token           string
	exemplarMetric  string
	domainMetrics   []string
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "obscheck", Short: "Check that scan traffic shows up in metrics, traces and logs"}
	f := cmd.PersistentFlags()
	f.StringVar(&opts.grafanaURL, "grafana-url", "http://localhost:3000", "Grafana base URL")
	f.StringVar(&opts.grafanaUser, "grafana-user", "admin", "Grafana username")
	f.StringVar(&opts.grafanaPassword, "grafana-password", "admin", "Grafana password")
	f.IntVar(&opts.prometheusID, "prometheus-datasource", 1, "Grafana datasource id for Prometheus")
	f.IntVar(&opts.lokiID, "loki-datasource", 2, "Grafana datasource id for Loki")
	f.IntVar(&opts.tempoID, "tempo-datasource", 3, "Grafana datasource id for Tempo")
	f.StringVar(&opts.serviceName, "service-name", "deepscan-backend", "OTel service name")
	f.DurationVar(&opts.window, "window", 20*time.Minute, "query lookback window")
	f.DurationVar(&opts.settle, "settle", 8*time.Second, "wait between traffic and queries for exporters to flush")
	f.BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	f.StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL for traffic")
	f.StringVar(&opts.token, "token", "", "identity token for authenticated traffic")
	f.StringVar(&opts.exemplarMetric, "exemplar-metric", "http_server_request_duration_seconds_bucket", "histogram queried for trace exemplars")
	f.StringSliceVar(&opts.domainMetrics, "domain-metric", []string{"response_cache_events_total", "repository_operations_total"}, "series that must exist after traffic")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate read traffic, then follow one exemplar to its trace and logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := common.Run("obscheck", "run", opts.ci, 3*time.Minute, func(ctx context.Context) ([]string, error) {
				return check(ctx, opts)
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "obscheck run", details, err)
			}
			if err != nil {
				os.Exit(exitCheckFailed)
			}
			return nil
		},
	}
}

func check(ctx context.Context, opts *options) ([]string, error) {
	// Without a token only the probes and rejected requests produce telemetry.
	profile := "read"
	if opts.token == "" {
		profile = "error-heavy"
	}
	res, err := loadgen.Run(ctx, loadgen.Config{
		BaseURL:     opts.baseURL,
		Profile:     profile,
		Token:       opts.token,
		Duration:    6 * time.Second,
		RPS:         20,
		Concurrency: 6,
		Seed:        42,
	})
	if err != nil {
		return nil, err
	}
	details := []string{fmt.Sprintf("traffic profile=%s total=%d failures=%d", profile, res.TotalRequests, res.Failures)}

	select {
	case <-ctx.Done():
		return details, ctx.Err()
	case <-time.After(opts.settle):
	}

	g := grafana{opts: opts, http: &http.Client{Timeout: 20 * time.Second}}
	if opts.token != "" {
		for _, name := range opts.domainMetrics {
			if err := g.seriesExists(ctx, name); err != nil {
				return details, err
			}
			details = append(details, "series present: "+name)
		}
	}

	traceID, err := g.exemplarTraceID(ctx)
	if err != nil {
		return details, err
	}
	details = append(details, "exemplar trace_id="+traceID)
	if err := g.traceExists(ctx, traceID); err != nil {
		return details, err
	}
	details = append(details, "tempo trace lookup: ok")
	if err := g.logsForTrace(ctx, traceID); err != nil {
		return details, err
	}
	details = append(details, "loki trace correlation: ok")
	return details, nil
}

// grafana queries the backing stores through Grafana's datasource proxy so
// only one set of credentials is needed.
type grafana struct {
	opts *options
	http *http.Client
}

func (g grafana) get(ctx context.Context, datasource int, path string, query url.Values, out any) error {
	u, err := url.Parse(g.opts.grafanaURL)
	if err != nil {
		return fmt.Errorf("grafana url: %w", err)
	}
	u.Path = fmt.Sprintf("%s/api/datasources/proxy/%d%s", strings.TrimRight(u.Path, "/"), datasource, path)
	u.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(g.opts.grafanaUser, g.opts.grafanaPassword)
	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("grafana %s: %s %s", path, resp.Status, strings.TrimSpace(string(snippet)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (g grafana) seriesExists(ctx context.Context, name string) error {
	var out struct {
		Data []map[string]string `json:"data"`
	}
	q := url.Values{
		"match[]": {name},
		"start":   {fmt.Sprint(time.Now().Add(-g.opts.window).Unix())},
		"end":     {fmt.Sprint(time.Now().Unix())},
	}
	if err := g.get(ctx, g.opts.prometheusID, "/api/v1/series", q, &out); err != nil {
		return err
	}
	if len(out.Data) == 0 {
		return fmt.Errorf("no series for %s", name)
	}
	return nil
}

func (g grafana) exemplarTraceID(ctx context.Context) (string, error) {
	var out struct {
		Data []struct {
			Exemplars []struct {
				Labels map[string]string `json:"labels"`
			} `json:"exemplars"`
		} `json:"data"`
	}
	q := url.Values{
		"query": {g.opts.exemplarMetric},
		"start": {fmt.Sprint(time.Now().Add(-g.opts.window).Unix())},
		"end":   {fmt.Sprint(time.Now().Unix())},
	}
	if err := g.get(ctx, g.opts.prometheusID, "/api/v1/query_exemplars", q, &out); err != nil {
		return "", err
	}
	for _, series := range out.Data {
		for _, ex := range series.Exemplars {
			if id := ex.Labels["trace_id"]; len(id) == 32 {
				return id, nil
			}
		}
	}
	return "", errors.New("no trace_id exemplar found")
}

func (g grafana) traceExists(ctx context.Context, traceID string) error {
	var out struct {
		Batches []json.RawMessage `json:"batches"`
	}
	if err := g.get(ctx, g.opts.tempoID, "/api/traces/"+traceID, nil, &out); err != nil {
		return err
	}
	if len(out.Batches) == 0 {
		return fmt.Errorf("tempo has no spans for trace %s", traceID)
	}
	return nil
}

func (g grafana) logsForTrace(ctx context.Context, traceID string) error {
	var out struct {
		Data struct {
			Result []json.RawMessage `json:"result"`
		} `json:"data"`
	}
	now := time.Now()
	q := url.Values{
		"query":     {fmt.Sprintf(`{service_name=%q} |= "trace_id=%s"`, g.opts.serviceName, traceID)},
		"start":     {fmt.Sprint(now.Add(-g.opts.window).UnixNano())},
		"end":       {fmt.Sprint(now.UnixNano())},
		"limit":     {"1"},
		"direction": {"backward"},
	}
	if err := g.get(ctx, g.opts.lokiID, "/loki/api/v1/query_range", q, &out); err != nil {
		return err
	}
	if len(out.Data.Result) == 0 {
		return fmt.Errorf("no loki lines carry trace_id %s", traceID)
	}
	return nil
}
