package router

import "encoding/json"

// Response codes carried by structured failure responses. Wordings are kept
// generic so callers cannot distinguish security rejections from other
// failures.
const (
	CodeInvalidParams = "invalid_params"
	CodeUnauthorized  = "unauthorized"
	CodeRateLimited   = "rate_limited"
	CodeNoHandler     = "no_handler"
	CodeInternal      = "internal_error"
)

// Response is the structured result of routing one envelope. Handler
// failures never propagate as raw errors across the dispatch boundary; they
// are converted into failure responses.
type Response struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Code   string          `json:"code,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Success builds an OK response with the marshaled result. A result that
// cannot be marshaled degrades to an internal failure.
func Success(v any) Response {
	if v == nil {
		return Response{OK: true}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Failure(CodeInternal, "request failed")
	}
	return Response{OK: true, Result: data}
}

// Failure builds a structured failure response.
func Failure(code, msg string) Response {
	return Response{OK: false, Code: code, Error: msg}
}

// DecodeResult unmarshals the response result into v.
func (r *Response) DecodeResult(v any) error {
	if len(r.Result) == 0 {
		return nil
	}
	return json.Unmarshal(r.Result, v)
}
