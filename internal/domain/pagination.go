package domain

// PaginationParams selects one page of a list. Page is 1-based.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Offset is the number of rows skipped before the page.
func (p PaginationParams) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}
