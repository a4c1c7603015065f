// internal/domain/invoice/dto.go
package invoice

type ListFilters struct {
	Status   *Status  `form:"status"`
	MinAmount *float64 `form:"min_amount" binding:"omitempty,min=0"`
	MaxAmount *float64 `form:"max_amount" binding:"omitempty,min=0"`
	Search   string   `form:"search"`
	Page     int      `form:"page" binding:"omitempty,min=1"`
	PageSize int      `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type ListResponse struct {
	Invoices   []Invoice `json:"invoices"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}
