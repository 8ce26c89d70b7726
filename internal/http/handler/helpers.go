package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sandeepkv93/deepscan-backend/internal/http/middleware"
	"github.com/sandeepkv93/deepscan-backend/internal/http/response"
	"github.com/sandeepkv93/deepscan-backend/internal/repository"
)

func principalOrUnauthorized(w http.ResponseWriter, r *http.Request) (*middleware.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity context", nil)
		return nil, false
	}
	return p, true
}

func parsePageRequest(r *http.Request) (repository.PageRequest, error) {
	page := repository.DefaultPage
	pageSize := repository.DefaultPageSize
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return repository.PageRequest{}, errors.New("page must be a positive integer")
		}
		page = v
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("page_size")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return repository.PageRequest{}, errors.New("page_size must be a positive integer")
		}
		if v > repository.MaxPageSize {
			return repository.PageRequest{}, fmt.Errorf("page_size must be <= %d", repository.MaxPageSize)
		}
		pageSize = v
	}
	return repository.PageRequest{Page: page, PageSize: pageSize}, nil
}

func paginatedData[T any](items []T, page, pageSize int, total int64, totalPages int) map[string]any {
	if items == nil {
		items = []T{}
	}
	return map[string]any{
		"items": items,
		"pagination": map[string]any{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
		},
	}
}
