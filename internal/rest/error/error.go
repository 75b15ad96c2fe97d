package error

// ApiError is the JSON error body returned by every failing endpoint.
type ApiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
