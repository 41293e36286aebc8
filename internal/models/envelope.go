package models

// Envelope is the uniform response body of every API route
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SuccessEnvelope wraps data in a successful response
func SuccessEnvelope(message string, data interface{}) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

// ErrorEnvelope builds a failed response carrying a stable error code
func ErrorEnvelope(code, message string, data interface{}) Envelope {
	return Envelope{Success: false, Message: message, Data: data, Error: code}
}
