package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sandeepkv93/deepscan-backend/internal/detector"
	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/observability"
	"github.com/sandeepkv93/deepscan-backend/internal/repository"
)

const (
	DefaultMaxBatchItems = 10
	detectorProviderName = "detector"
)

var (
	ErrEmptyBatch    = errors.New("batch has no items")
	ErrBatchTooLarge = errors.New("batch exceeds maximum item count")
	ErrScanNotFound  = repository.ErrVerificationResultNotFound
)

// Item error codes returned in batch outcomes.
const (
	ItemErrProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ItemErrProviderTimeout     = "PROVIDER_TIMEOUT"
	ItemErrMalformedMedia      = "MALFORMED_MEDIA"
	ItemErrMediaUnreachable    = "MEDIA_UNREACHABLE"
	ItemErrInternal            = "INTERNAL"
)

type ItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ScanItemResult struct {
	Index    int                        `json:"index"`
	FileName string                     `json:"file_name"`
	Result   *domain.VerificationResult `json:"result,omitempty"`
	Error    *ItemError                 `json:"error,omitempty"`
}

type ScanBatchResult struct {
	Items   []ScanItemResult `json:"items"`
	Charged int              `json:"charged"`
	Balance int              `json:"balance"`
}

// ScanDetail is a stored result with its provider payload decoded.
type ScanDetail struct {
	domain.VerificationResult
	Provider *domain.ProviderPayload `json:"provider,omitempty"`
}

type ScanService struct {
	scheduler *BatchScheduler
	results   repository.VerificationResultRepository
	ledger    *CreditLedger
	media     MediaStore
	cache     *ResponseCache
	maxItems  int
	logger    *slog.Logger
}

func NewScanService(
	scheduler *BatchScheduler,
	results repository.VerificationResultRepository,
	ledger *CreditLedger,
	media MediaStore,
	cache *ResponseCache,
	maxItems int,
	logger *slog.Logger,
) *ScanService {
	if maxItems <= 0 {
		maxItems = DefaultMaxBatchItems
	}
	if media == nil {
		media = NewNoopMediaStore()
	}
	if cache == nil {
		cache = NewResponseCache(nil, ResponseCacheConfig{}, logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanService{
		scheduler: scheduler,
		results:   results,
		ledger:    ledger,
		media:     media,
		cache:     cache,
		maxItems:  maxItems,
		logger:    logger,
	}
}

func (s *ScanService) MaxItems() int { return s.maxItems }

// Submit runs a batch through the detector, persists the successful items
// and charges one credit per persisted item in the same transaction. A
// batch the balance cannot cover is rejected before any detector call.
func (s *ScanService) Submit(ctx context.Context, userID uint, items []MediaItem) (*ScanBatchResult, error) {
	ctx, span := observability.StartSpan(ctx, "scan.submit", attribute.Int("scan.items", len(items)))
	out, err := s.submit(ctx, userID, items)
	if out != nil {
		span.SetAttributes(attribute.Int("scan.charged", out.Charged))
	}
	observability.EndSpan(span, err)
	return out, err
}

func (s *ScanService) submit(ctx context.Context, userID uint, items []MediaItem) (*ScanBatchResult, error) {
	switch {
	case len(items) == 0:
		return nil, ErrEmptyBatch
	case len(items) > s.maxItems:
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(items), s.maxItems)
	}

	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < len(items) {
		observability.RecordCreditLedgerEvent(ctx, "preflight", "insufficient")
		return nil, fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientCredits, balance, len(items))
	}

	outcomes := s.scheduler.Run(ctx, items)

	// persistence is not abandoned when the client goes away mid-request
	persistCtx := context.WithoutCancel(ctx)
	batchRef := "batch_" + uuid.NewString()
	out := &ScanBatchResult{Items: make([]ScanItemResult, len(outcomes)), Balance: balance}
	rows := make([]domain.VerificationResult, 0, len(outcomes))
	rowIndex := make([]int, 0, len(outcomes))
	var storedKeys []string

	for i, o := range outcomes {
		out.Items[i] = ScanItemResult{Index: i, FileName: o.Item.FileName}
		if !o.Succeeded() {
			out.Items[i].Error = itemErrorFor(o.Err)
			s.logger.WarnContext(ctx, "scan item failed",
				"user_id", userID,
				"index", i,
				"file_type", o.Item.Type,
				"code", out.Items[i].Error.Code,
				"error", o.Err,
			)
			continue
		}
		row, err := s.buildResult(o)
		if err != nil {
			out.Items[i].Error = &ItemError{Code: ItemErrInternal, Message: "result could not be recorded"}
			s.logger.ErrorContext(ctx, "encode provider payload failed", "index", i, "error", err)
			continue
		}
		if o.Item.IsRemote() {
			row.MediaRef = o.Item.URL
		} else {
			// without a stored object the digest still identifies the bytes
			key, err := s.media.Put(persistCtx, userID, row.ScanID, o.Item.Data)
			switch {
			case err != nil:
				s.logger.WarnContext(ctx, "media upload failed, result kept with content digest", "scan_id", row.ScanID, "error", err)
				row.MediaRef = contentRef(o.Item.Data)
			case key == "":
				row.MediaRef = contentRef(o.Item.Data)
			default:
				row.MediaRef = key
				storedKeys = append(storedKeys, key)
			}
		}
		rows = append(rows, row)
		rowIndex = append(rowIndex, i)
	}

	if len(rows) == 0 {
		return out, nil
	}

	newBalance, err := s.results.CreateBatchWithDebit(persistCtx, userID, batchRef, rows)
	observability.RecordCreditLedgerEvent(ctx, "debit", ledgerOutcome(err))
	if err != nil {
		s.discardMedia(persistCtx, userID, storedKeys)
		if errors.Is(err, ErrInsufficientCredits) {
			observability.EmitAuditContext(ctx, observability.AuditInput{
				EventName:   "credits.debit",
				ActorUserID: userIDString(userID),
				TargetType:  "user",
				TargetID:    userIDString(userID),
				Action:      "debit",
				Outcome:     "rejected",
				Reason:      "balance_drained_during_batch",
			}, "amount", len(rows))
		}
		return nil, fmt.Errorf("persist scan batch: %w", err)
	}

	for j, i := range rowIndex {
		r := rows[j]
		out.Items[i].Result = &r
	}
	out.Charged = len(rows)
	out.Balance = newBalance

	s.cache.Invalidate(persistCtx, userID, CacheOpScanList, CacheOpProfile)
	s.logger.InfoContext(ctx, "scan batch persisted",
		"user_id", userID,
		"batch_ref", batchRef,
		"items", len(items),
		"charged", out.Charged,
		"balance", out.Balance,
	)
	return out, nil
}

func (s *ScanService) buildResult(o ItemOutcome) (domain.VerificationResult, error) {
	res := o.Result
	payload, err := domain.ProviderPayload{
		Provider:  detectorProviderName,
		RequestID: res.RequestID,
		Status:    string(res.Status),
		Score:     res.OverallScore,
		Models:    res.Models,
	}.Encode()
	if err != nil {
		return domain.VerificationResult{}, err
	}
	models := res.Models
	if models == nil {
		models = []domain.ModelResult{}
	}
	return domain.VerificationResult{
		ScanID:          uuid.NewString(),
		FileName:        displayName(o.Item),
		FileType:        o.Item.Type,
		Status:          MapVerdict(res.Status, res.OverallScore),
		ConfidenceScore: ConfidenceScore(res.OverallScore),
		Models:          models,
		ProviderPayload: payload,
	}, nil
}

func (s *ScanService) discardMedia(ctx context.Context, userID uint, keys []string) {
	for _, key := range keys {
		if err := s.media.Delete(ctx, userID, key); err != nil {
			s.logger.WarnContext(ctx, "orphaned media cleanup failed", "key", key, "error", err)
		}
	}
}

func (s *ScanService) Get(ctx context.Context, userID uint, scanID string) (*ScanDetail, error) {
	detail, _, err := cachedJSON(ctx, s.cache, CacheOpScanItem, userID, scanID, func(ctx context.Context) (ScanDetail, error) {
		row, err := s.results.FindByScanID(ctx, userID, scanID)
		if err != nil {
			return ScanDetail{}, err
		}
		out := ScanDetail{VerificationResult: *row}
		if payload, err := domain.ParseProviderPayload(row.ProviderPayload); err != nil {
			s.logger.WarnContext(ctx, "stored provider payload unreadable", "scan_id", scanID, "error", err)
		} else {
			out.Provider = &payload
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (s *ScanService) List(ctx context.Context, userID uint, filter repository.ResultFilter, req repository.PageRequest) (repository.PageResult[domain.VerificationResult], error) {
	key := fmt.Sprintf("page=%d&size=%d&status=%s&type=%s", req.Page, req.PageSize, filter.Status, filter.FileType)
	page, _, err := cachedJSON(ctx, s.cache, CacheOpScanList, userID, key, func(ctx context.Context) (repository.PageResult[domain.VerificationResult], error) {
		return s.results.ListPaged(ctx, userID, filter, req)
	})
	return page, err
}

func (s *ScanService) Delete(ctx context.Context, userID uint, scanID string) error {
	row, err := s.results.DeleteByScanID(ctx, userID, scanID)
	if err != nil {
		return err
	}
	s.cache.InvalidateKey(ctx, CacheOpScanItem, userID, scanID)
	s.cache.Invalidate(ctx, userID, CacheOpScanList)
	if row.MediaRef != "" && ownsMediaKey(userID, row.MediaRef) {
		if err := s.media.Delete(ctx, userID, row.MediaRef); err != nil {
			s.logger.WarnContext(ctx, "media delete failed", "scan_id", scanID, "error", err)
		}
	}
	return nil
}

func itemErrorFor(err error) *ItemError {
	switch {
	case errors.Is(err, detector.ErrMalformedMedia):
		return &ItemError{Code: ItemErrMalformedMedia, Message: "media is empty, unreadable or not of the declared type"}
	case errors.Is(err, detector.ErrMediaUnreachable):
		return &ItemError{Code: ItemErrMediaUnreachable, Message: "media url could not be fetched"}
	case errors.Is(err, detector.ErrProviderTimeout):
		return &ItemError{Code: ItemErrProviderTimeout, Message: "detector did not respond in time"}
	default:
		return &ItemError{Code: ItemErrProviderUnavailable, Message: "detector is unavailable"}
	}
}

func displayName(item MediaItem) string {
	if name := strings.TrimSpace(item.FileName); name != "" {
		return name
	}
	if item.URL != "" {
		if i := strings.LastIndex(item.URL, "/"); i >= 0 && i < len(item.URL)-1 {
			return item.URL[i+1:]
		}
		return item.URL
	}
	return "upload"
}
