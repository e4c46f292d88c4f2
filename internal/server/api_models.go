package server

// AnalyzeRequest is the payload for a disclosure analysis.
type AnalyzeRequest struct {
	Content       string            `json:"content" example:"password := \"hunter2\""`
	Language      string            `json:"language" example:"go"`
	Name          string            `json:"name" example:"auth/login.go"`
	IncludeMarkup bool              `json:"includeMarkup" example:"false"`
	ExtraOptions  map[string]string `json:"extraOptions,omitempty"`
}

// InvalidateCacheResponse reports how many cached results were dropped.
type InvalidateCacheResponse struct {
	Removed int `json:"removed" example:"3"`
}

// HealthResponse reports engine readiness.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}
