package handlers

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error" example:"camera not found"`
}
