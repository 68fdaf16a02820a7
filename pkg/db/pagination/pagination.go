package pagination

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Pagination struct {
	Page     int `form:"page,default=1" validate:"gte=1"`
	PageSize int `form:"page_size,default=20" validate:"gte=1,lte=100"` // Min 1, Max 100
}

type PageInfo struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	HasMore  bool  `json:"has_more"`
}

// Normalize clamps page and size into the accepted range.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PageSize
}

func (p Pagination) Limit() int {
	return p.Normalize().PageSize
}

func BuildPageInfo(p Pagination, total int64) PageInfo {
	p = p.Normalize()
	return PageInfo{
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    total,
		HasMore:  int64(p.Page*p.PageSize) < total,
	}
}
