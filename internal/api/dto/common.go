package dto

import (
	"net/url"
	"strconv"
)

// ErrorResponse is the body of every non-2xx JSON response. Details maps
// field names to validation messages.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Page is one page of a listing.
type Page[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

type PaginationParams struct {
	Page    int
	PerPage int
}

// PaginationFromQuery reads page and per_page, clamping bad values to the
// defaults.
func PaginationFromQuery(q url.Values) PaginationParams {
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	p := PaginationParams{Page: page, PerPage: perPage}
	p.Normalize()
	return p
}

func (p *PaginationParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
}

func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// NewPage wraps data with the totals for p.
func NewPage[T any](data []T, total int64, p PaginationParams) Page[T] {
	pages := int((total + int64(p.PerPage) - 1) / int64(p.PerPage))
	if data == nil {
		data = []T{}
	}
	return Page[T]{
		Data:       data,
		Total:      total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: pages,
	}
}
