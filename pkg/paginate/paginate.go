// Package paginate converts page/limit query parameters into skip/limit
// values and computes the page metadata returned alongside listings.
package paginate

import (
	"net/http"
	"strconv"
)

const maxLimit = 100

// Params is the parsed page/limit pair.
type Params struct {
	Page  int
	Limit int
}

// Skip returns the number of documents to skip.
func (p Params) Skip() int64 { return int64((p.Page - 1) * p.Limit) }

// FromRequest parses page and limit from the query string, clamping to
// sane bounds. defaultLimit is used when the limit parameter is absent.
func FromRequest(r *http.Request, defaultLimit int) Params {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return Params{Page: page, Limit: limit}
}

// Meta is the pagination block included in listing responses.
type Meta struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// NewMeta computes page metadata for a listing of count returned documents
// out of total matching documents.
func NewMeta(p Params, count int, total int64) Meta {
	totalPages := int(total) / p.Limit
	if int(total)%p.Limit != 0 {
		totalPages++
	}
	return Meta{
		CurrentPage: p.Page,
		TotalPages:  totalPages,
		HasNext:     p.Skip()+int64(count) < total,
		HasPrev:     p.Page > 1,
	}
}
