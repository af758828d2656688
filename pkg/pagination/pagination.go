package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any listing can request.
	MaxLimit = 100
	// MaxOffset bounds how deep offset paging may reach.
	MaxOffset = 1 << 30
)

// Page holds normalized offset pagination inputs.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the requested limit and offset to the allowed ranges.
func Normalize(limit, offset int) Page {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset > MaxOffset {
		offset = MaxOffset
	}
	return Page{Limit: limit, Offset: offset}
}
