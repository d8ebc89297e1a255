package shared

const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// ListFilters represents standard list filters.
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	IsActive *bool

	CompanyID *int64
}

// Normalize fills defaults for unset pagination fields.
func (f *ListFilters) Normalize() {
	if f.Page <= 0 {
		f.Page = DefaultPage
	}
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
}

// Offset computes the row offset for the current page.
func (f ListFilters) Offset() int {
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		return 0
	}
	return offset
}
