package shared

// Page carries pagination parameters parsed by the transport layer.
type Page struct {
	Number int
	Size   int
}

// Normalize applies the default page size and clamps out-of-range values.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 20
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return p
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Paginated wraps a result slice with listing metadata.
type Paginated[T any] struct {
	Items      []T `json:"items"`
	TotalItems int `json:"total_items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	NumPages   int `json:"num_pages"`
}

// NewPaginated computes listing metadata for a page of results.
func NewPaginated[T any](items []T, total int, page Page) Paginated[T] {
	numPages := 0
	if page.Size > 0 {
		numPages = (total + page.Size - 1) / page.Size
	}
	return Paginated[T]{
		Items:      items,
		TotalItems: total,
		Page:       page.Number,
		PageSize:   page.Size,
		NumPages:   numPages,
	}
}
