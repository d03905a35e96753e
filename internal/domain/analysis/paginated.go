package analysis

// PaginatedRuns represents a paginated history response with data and metadata
type PaginatedRuns struct {
	Data       []*Run `json:"data"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	Total      int64  `json:"totalItems"`
	TotalPages int    `json:"totalPages"`
}
