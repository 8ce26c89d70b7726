package repository

import "gorm.io/gorm"

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PageRequest struct {
	Page     int
	PageSize int
}

// Normalized clamps the request: pages start at 1 and sizes fall in
// [1, MaxPageSize], with DefaultPageSize for anything unset.
func (p PageRequest) Normalized() PageRequest {
	out := p
	if out.Page < 1 {
		out.Page = DefaultPage
	}
	switch {
	case out.PageSize < 1:
		out.PageSize = DefaultPageSize
	case out.PageSize > MaxPageSize:
		out.PageSize = MaxPageSize
	}
	return out
}

func (p PageRequest) offset() int { return (p.Page - 1) * p.PageSize }

type PageResult[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}

func pagesFor(total int64, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// findPage counts base, then loads one newest-first page of it. Ties on
// created_at fall back to id so pages never overlap.
func findPage[T any](base *gorm.DB, req PageRequest) (PageResult[T], error) {
	req = req.Normalized()
	out := PageResult[T]{Items: []T{}, Page: req.Page, PageSize: req.PageSize}

	if err := base.Session(&gorm.Session{}).Count(&out.Total).Error; err != nil {
		return PageResult[T]{}, err
	}
	out.TotalPages = pagesFor(out.Total, req.PageSize)
	if int64(req.offset()) >= out.Total {
		return out, nil
	}
	err := base.Session(&gorm.Session{}).
		Order("created_at desc").Order("id desc").
		Offset(req.offset()).Limit(req.PageSize).
		Find(&out.Items).Error
	if err != nil {
		return PageResult[T]{}, err
	}
	return out, nil
}
