// Package view turns the raw order set into the searched, sorted and paginated
// page shown to operators. Everything here is a pure function of its inputs.
package view

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/vaidashi/order-status-sync/internal/models"
	apperrors "github.com/vaidashi/order-status-sync/pkg/errors"
)

// DefaultPageSize is used when a query does not set one
const DefaultPageSize = 20

// SortKey selects the field orders are sorted by
type SortKey string

const (
	SortDate   SortKey = "date"
	SortTotal  SortKey = "total"
	SortStatus SortKey = "status"
)

// Direction is the sort direction
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseSortKey accepts date, total or status; empty means date
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortDate:
		return SortDate, nil
	case SortTotal:
		return SortTotal, nil
	case SortStatus:
		return SortStatus, nil
	}
	return "", apperrors.NewInvalidInputError(fmt.Sprintf("unknown sort key %q", s))
}

// ParseDirection accepts asc or desc (or their long forms); empty means desc
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	}
	return "", apperrors.NewInvalidInputError(fmt.Sprintf("unknown sort direction %q", s))
}

// Query holds the view state applied to the raw orders
type Query struct {
	Search    string
	SortKey   SortKey
	Direction Direction
	Page      int
	PageSize  int
}

// Page is one page of the projected view. Start and End are the 0-based
// half-open bounds of Items within the full filtered result.
type Page struct {
	Items      []*models.Order `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
	TotalCount int             `json:"totalCount"`
	Start      int             `json:"start"`
	End        int             `json:"end"`
}

// Project searches, sorts and paginates orders. The input slice is not modified.
func Project(orders []*models.Order, q Query) Page {
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	filtered := Filter(orders, q.Search)
	Sort(filtered, q.SortKey, q.Direction)

	total := len(filtered)
	totalPages := TotalPages(total, pageSize)

	page := min(max(q.Page, 1), totalPages)

	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	return Page{
		Items:      filtered[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalCount: total,
		Start:      start,
		End:        end,
	}
}

// Filter returns a new slice with the orders whose folio, customer name or
// note contains term, case-insensitively. An empty term matches everything.
func Filter(orders []*models.Order, term string) []*models.Order {
	term = strings.ToLower(strings.TrimSpace(term))

	out := make([]*models.Order, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		if term == "" || Matches(o, term) {
			out = append(out, o)
		}
	}
	return out
}

// Matches reports whether a lower-cased term occurs in the searchable fields
func Matches(o *models.Order, term string) bool {
	for _, field := range []string{o.Folio, o.CustomerName, o.Note} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Sort orders in place, keeping the relative order of equal keys
func Sort(orders []*models.Order, key SortKey, dir Direction) {
	compare := comparator(key)

	slices.SortStableFunc(orders, func(a, b *models.Order) int {
		c := compare(a, b)
		if dir == Ascending {
			return c
		}
		return -c
	})
}

func comparator(key SortKey) func(a, b *models.Order) int {
	switch key {
	case SortTotal:
		return func(a, b *models.Order) int { return cmp.Compare(a.Total, b.Total) }
	case SortStatus:
		return func(a, b *models.Order) int {
			return strings.Compare(string(a.CurrentStatus()), string(b.CurrentStatus()))
		}
	default:
		// dates are stored as sortable strings, compared lexically
		return func(a, b *models.Order) int { return strings.Compare(a.Date, b.Date) }
	}
}

// TotalPages is ceil(count/pageSize), never less than 1
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return max(1, (count+pageSize-1)/pageSize)
}

// Pager moves between pages without leaving [1, TotalPages]
type Pager struct {
	Page       int
	TotalPages int
}

// Next advances one page. On the last page it does nothing and returns false.
func (p *Pager) Next() bool {
	if p.Page >= p.TotalPages {
		return false
	}
	p.Page++
	return true
}

// Prev goes back one page. On the first page it does nothing and returns false.
func (p *Pager) Prev() bool {
	if p.Page <= 1 {
		return false
	}
	p.Page--
	return true
}

// Reset returns to the first page
func (p *Pager) Reset() {
	p.Page = 1
}
