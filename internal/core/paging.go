// AngelaMos | 2026
// paging.go

package core

import (
	"net/http"
	"strconv"
)

// Page is a one based page request.
type Page struct {
	Number int
	Size   int
}

// Clamp fills in defaults and caps the page size at max.
func (p Page) Clamp(size, maxSize int) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	switch {
	case p.Size < 1:
		p.Size = size
	case p.Size > maxSize:
		p.Size = maxSize
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// PageFromQuery reads page and page_size. Unparseable values fall back to
// the defaults given to Clamp.
func PageFromQuery(r *http.Request, size, maxSize int) Page {
	q := r.URL.Query()
	//nolint:errcheck // zero is replaced by Clamp
	number, _ := strconv.Atoi(q.Get("page"))
	//nolint:errcheck // zero is replaced by Clamp
	requested, _ := strconv.Atoi(q.Get("page_size"))
	return Page{Number: number, Size: requested}.Clamp(size, maxSize)
}
