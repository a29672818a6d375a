package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ListEnvelope wraps collection responses that support cursor pagination.
type ListEnvelope struct {
	Data       any     `json:"data"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
