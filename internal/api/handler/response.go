package handler

// Response is the envelope every endpoint renders.
type Response struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func OK(data any, message string) Response {
	return Response{Success: true, Message: message, Data: data}
}

// Fail builds a failure envelope. With no explicit errors the message itself
// is listed so clients can always read errors[0].
func Fail(message string, errs ...string) Response {
	if len(errs) == 0 {
		errs = []string{message}
	}
	return Response{Success: false, Message: message, Errors: errs}
}
