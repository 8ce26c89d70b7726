package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/deepscan-backend/internal/domain"
	"github.com/sandeepkv93/deepscan-backend/internal/http/response"
	"github.com/sandeepkv93/deepscan-backend/internal/repository"
	"github.com/sandeepkv93/deepscan-backend/internal/service"
)

const (
	defaultMaxUploadBytes = 50 << 20
	multipartMemory       = 8 << 20
)

type ScanHandler struct {
	svc            service.ScanServiceInterface
	maxUploadBytes int64
}

func NewScanHandler(svc service.ScanServiceInterface, maxUploadBytes int64) *ScanHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &ScanHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

type scanURLItem struct {
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
	FileName  string `json:"file_name"`
}

type scanJSONRequest struct {
	MediaType string        `json:"media_type"`
	URLs      []string      `json:"urls"`
	Items     []scanURLItem `json:"items"`
}

// Submit accepts multipart uploads (files plus optional urls fields) or a
// JSON body of URLs and runs them as one batch.
func (h *ScanHandler) Submit(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}

	var (
		items []service.MediaItem
		err   error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		items, err = h.itemsFromMultipart(w, r)
	case "application/json", "":
		items, err = itemsFromJSON(r.Body)
	default:
		response.Error(w, r, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "use multipart/form-data or application/json", nil)
		return
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "upload exceeds size limit", nil)
			return
		}
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	res, err := h.svc.Submit(r.Context(), p.UserID, items)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyBatch):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "no media submitted", nil)
		case errors.Is(err, service.ErrBatchTooLarge):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "too many items in batch", map[string]any{"max_items": h.svc.MaxItems()})
		case errors.Is(err, service.ErrInsufficientCredits):
			response.Error(w, r, http.StatusPaymentRequired, "INSUFFICIENT_CREDITS", "not enough credits for this batch", map[string]any{"required": len(items)})
		case errors.Is(err, service.ErrUserNotFound):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to run scan batch", nil)
		}
		return
	}
	response.JSON(w, r, http.StatusOK, res)
}

func (h *ScanHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}
	pageReq, err := parsePageRequest(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	filter, err := parseResultFilter(r)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	res, err := h.svc.List(r.Context(), p.UserID, filter, pageReq)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list scans", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, paginatedData(res.Items, res.Page, res.PageSize, res.Total, res.TotalPages))
}

func (h *ScanHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}
	scanID := strings.TrimSpace(chi.URLParam(r, "scan_id"))
	if scanID == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid scan id", nil)
		return
	}
	detail, err := h.svc.Get(r.Context(), p.UserID, scanID)
	if err != nil {
		if errors.Is(err, service.ErrScanNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "scan not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to load scan", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, detail)
}

func (h *ScanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := principalOrUnauthorized(w, r)
	if !ok {
		return
	}
	scanID := strings.TrimSpace(chi.URLParam(r, "scan_id"))
	if scanID == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid scan id", nil)
		return
	}
	if err := h.svc.Delete(r.Context(), p.UserID, scanID); err != nil {
		if errors.Is(err, service.ErrScanNotFound) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "scan not found", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to delete scan", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"deleted": scanID})
}

func (h *ScanHandler) itemsFromMultipart(w http.ResponseWriter, r *http.Request) ([]service.MediaItem, error) {
	if r.ContentLength > h.maxUploadBytes {
		return nil, &http.MaxBytesError{Limit: h.maxUploadBytes}
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	declared := strings.TrimSpace(r.FormValue("media_type"))
	var items []service.MediaItem
	for _, field := range []string{"files", "file"} {
		for _, fh := range r.MultipartForm.File[field] {
			item, err := mediaFromFileHeader(fh, declared)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	for _, raw := range r.MultipartForm.Value["urls"] {
		item, err := mediaFromURL(scanURLItem{URL: raw, MediaType: declared})
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func itemsFromJSON(body io.Reader) ([]service.MediaItem, error) {
	var req scanJSONRequest
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, errors.New("invalid payload")
	}
	items := make([]service.MediaItem, 0, len(req.URLs)+len(req.Items))
	for _, raw := range req.URLs {
		item, err := mediaFromURL(scanURLItem{URL: raw, MediaType: req.MediaType})
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	for _, in := range req.Items {
		if in.MediaType == "" {
			in.MediaType = req.MediaType
		}
		item, err := mediaFromURL(in)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func mediaFromFileHeader(fh *multipart.FileHeader, declared string) (service.MediaItem, error) {
	f, err := fh.Open()
	if err != nil {
		return service.MediaItem{}, fmt.Errorf("unreadable upload %q", fh.Filename)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return service.MediaItem{}, fmt.Errorf("unreadable upload %q", fh.Filename)
	}

	var mt domain.MediaType
	if declared != "" {
		parsed, ok := domain.ParseMediaType(declared)
		if !ok {
			return service.MediaItem{}, fmt.Errorf("unsupported media_type %q", declared)
		}
		mt = parsed
	} else {
		sniffed, ok := sniffMediaType(data)
		if !ok {
			return service.MediaItem{}, fmt.Errorf("cannot determine media type of %q", fh.Filename)
		}
		mt = sniffed
	}
	return service.MediaItem{FileName: path.Base(fh.Filename), Type: mt, Data: data}, nil
}

func mediaFromURL(in scanURLItem) (service.MediaItem, error) {
	raw := strings.TrimSpace(in.URL)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return service.MediaItem{}, fmt.Errorf("invalid media url %q", raw)
	}
	mt, ok := domain.ParseMediaType(in.MediaType)
	if !ok {
		return service.MediaItem{}, fmt.Errorf("media_type is required for url %q", raw)
	}
	return service.MediaItem{FileName: strings.TrimSpace(in.FileName), Type: mt, URL: raw}, nil
}

// sniffMediaType maps the detected MIME family onto a scan media type.
func sniffMediaType(data []byte) (domain.MediaType, bool) {
	if len(data) == 0 {
		return "", false
	}
	family, _, _ := strings.Cut(mimetype.Detect(data).String(), "/")
	return domain.ParseMediaType(family)
}

func parseResultFilter(r *http.Request) (repository.ResultFilter, error) {
	var f repository.ResultFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, ok := domain.ParseClassification(raw)
		if !ok {
			return f, fmt.Errorf("invalid status filter %q", raw)
		}
		f.Status = status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("file_type")); raw != "" {
		mt, ok := domain.ParseMediaType(raw)
		if !ok {
			return f, fmt.Errorf("invalid file_type filter %q", raw)
		}
		f.FileType = mt
	}
	return f, nil
}
