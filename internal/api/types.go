package api

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Field   string `json:"field,omitempty"`
}

type CreatedResponse struct {
	ID int64 `json:"id"`
}
