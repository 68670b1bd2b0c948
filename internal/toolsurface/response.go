// Package toolsurface implements the custom tool surface an agent host
// calls into: mem-find, mem-history, mem-get, mem-create, mem-revise,
// mem-remove, mem-export, mem-import, mem-maintenance, mem-help. Every
// handler deserializes its JSON arguments, validates them, dispatches to
// the core packages, and returns a uniform envelope, grounded on the
// teacher's internal/rpc protocol.go Request/Response pairing but trimmed
// to open-mem's ten operations.
package toolsurface

// Code is one of the four error codes every failure response carries.
type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	CodeInternal   Code = "INTERNAL"
)

// Response is the envelope every tool call returns: either
// {ok:true, data:...} or {ok:false, code, message, detail?}.
type Response struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data,omitempty"`
	Code    Code   `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

func ok(data any) Response {
	return Response{OK: true, Data: data}
}

func fail(code Code, message string) Response {
	return Response{OK: false, Code: code, Message: message}
}

func failDetail(code Code, message, detail string) Response {
	return Response{OK: false, Code: code, Message: message, Detail: detail}
}
