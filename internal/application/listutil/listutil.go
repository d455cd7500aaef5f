// Package listutil parses list view query strings and pages already loaded slices.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 25

// PerPageOptions are the allowed rows-per-page values.
var PerPageOptions = []int{10, 25, 50, 100}

// Params carries the list parameters of a request.
type Params struct {
	Page    int    // 1-indexed
	PerPage int    // one of PerPageOptions
	Sort    string // empty means the view's natural order
	Desc    bool
	Search  string
	Filters map[string]string // only recognised keys
}

// Parse reads page, per_page, sort, dir, q and the named filters from q.
// Unknown sort columns and filter keys are dropped.
// POST: Page >= 1; PerPage is one of PerPageOptions; Filters is non-nil
func Parse(q url.Values, sortable, filterKeys []string) Params {
	p := Params{
		Page:    1,
		PerPage: DefaultPerPage,
		Search:  strings.TrimSpace(q.Get("q")),
		Filters: make(map[string]string),
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 1 {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil && slices.Contains(PerPageOptions, n) {
		p.PerPage = n
	}
	if s := q.Get("sort"); slices.Contains(sortable, s) {
		p.Sort = s
		p.Desc = q.Get("dir") == "desc"
	}
	for _, key := range filterKeys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			p.Filters[key] = v
		}
	}
	return p
}

// Dir returns "desc" or "asc" for templates.
func (p Params) Dir() string {
	if p.Desc {
		return "desc"
	}
	return "asc"
}

// Query encodes p back into a query string, overriding the page.
func (p Params) Query(page int) string {
	v := url.Values{}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	if p.PerPage != DefaultPerPage {
		v.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
		v.Set("dir", p.Dir())
	}
	if p.Search != "" {
		v.Set("q", p.Search)
	}
	for k, val := range p.Filters {
		v.Set(k, val)
	}
	return v.Encode()
}

// PageInfo carries pagination metadata for rendering.
type PageInfo struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPageInfo computes pagination metadata.
// POST: TotalPages >= 1; Page is clamped to [1, TotalPages]
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := max((total+perPage-1)/perPage, 1)
	return PageInfo{
		Page:       min(max(page, 1), totalPages),
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Offset returns the index of the first row on the current page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// StartRow returns the 1-indexed first row number on the page, or 0 when empty.
func (p PageInfo) StartRow() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndRow returns the 1-indexed last row number on the page.
func (p PageInfo) EndRow() int {
	return min(p.Offset()+p.PerPage, p.Total)
}

// HasPrev reports whether a previous page exists.
func (p PageInfo) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p PageInfo) HasNext() bool { return p.Page < p.TotalPages }

// PageNumbers returns at most five page numbers centered on the current page.
func (p PageInfo) PageNumbers() []int {
	const window = 5
	start := max(p.Page-window/2, 1)
	end := min(start+window-1, p.TotalPages)
	start = max(end-window+1, 1)
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// Paginate returns the rows of items on page p along with the page metadata.
// INVARIANT: items is not modified
func Paginate[T any](items []T, p Params) ([]T, PageInfo) {
	info := NewPageInfo(p.Page, p.PerPage, len(items))
	return items[info.Offset():info.EndRow()], info
}
