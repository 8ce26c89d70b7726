package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/deepscan-backend/internal/detector"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"
)

const DefaultBatchWorkers = 3

var errItemPanicked = errors.New("scan item panicked")

// MediaItem is one entry of a submitted batch.
type MediaItem = detector.Media

// ItemOutcome holds exactly one of Result or Err.
type ItemOutcome struct {
	Index  int
	Item   MediaItem
	Result *detector.Result
	Err    error
}

func (o ItemOutcome) Succeeded() bool { return o.Err == nil && o.Result != nil }

// BatchScheduler fans a batch out to the detector with a fixed number of
// workers. It has no side effects beyond the detector calls.
type BatchScheduler struct {
	client  detector.Client
	workers int
	logger  *slog.Logger
}

func NewBatchScheduler(client detector.Client, workers int, logger *slog.Logger) *BatchScheduler {
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchScheduler{client: client, workers: workers, logger: logger}
}

func (s *BatchScheduler) Workers() int { return s.workers }

// Run analyzes every item and returns outcomes in input order. Items are
// dispatched on a context detached from the caller's cancellation, so a
// disconnecting client does not abandon work already handed to the
// detector; each call is bounded by the detector's own timeout.
func (s *BatchScheduler) Run(ctx context.Context, items []MediaItem) []ItemOutcome {
	outcomes := make([]ItemOutcome, len(items))
	if len(items) == 0 {
		return outcomes
	}
	started := time.Now()
	detached := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range items {
		g.Go(func() error {
			outcomes[i] = s.runItem(detached, i, items[i])
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if !o.Succeeded() {
			failed++
		}
	}
	batchOutcome := "success"
	switch {
	case failed == len(outcomes):
		batchOutcome = "failure"
	case failed > 0:
		batchOutcome = "partial"
	}
	observability.RecordScanBatch(ctx, batchOutcome, len(items), time.Since(started))
	s.logger.InfoContext(ctx, "scan batch completed",
		"items", len(items),
		"failed", failed,
		"workers", s.workers,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return outcomes
}

func (s *BatchScheduler) runItem(ctx context.Context, index int, item MediaItem) (out ItemOutcome) {
	out = ItemOutcome{Index: index, Item: item}
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "scan item panicked", "index", index, "panic", fmt.Sprint(rec))
			out.Result = nil
			out.Err = errItemPanicked
		}
		observability.RecordScanItemOutcome(ctx, string(item.Type), itemOutcomeLabel(out.Err))
	}()

	ctx, span := observability.StartSpan(ctx, "detector.detect",
		attribute.Int("scan.item.index", index),
		attribute.String("scan.item.type", string(item.Type)),
		attribute.Bool("scan.item.remote", item.IsRemote()),
	)
	res, err := s.client.Detect(ctx, item)
	observability.EndSpan(span, err)
	switch {
	case err != nil:
		out.Err = err
	case res == nil:
		out.Err = detector.ErrProviderUnavailable
	default:
		out.Result = res
	}
	return out
}

func itemOutcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, detector.ErrMalformedMedia):
		return "malformed_media"
	case errors.Is(err, detector.ErrMediaUnreachable):
		return "media_unreachable"
	case errors.Is(err, detector.ErrProviderTimeout):
		return "provider_timeout"
	case errors.Is(err, detector.ErrProviderUnavailable):
		return "provider_unavailable"
	default:
		return "error"
	}
}
