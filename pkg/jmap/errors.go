package jmap

import (
	"encoding/json"
	"net/http"
)

// ProblemType identifies a request-level failure. These reject the whole
// batch before any call executes and surface as an HTTP problem document
// (RFC 8620 section 3.6.1).
type ProblemType string

const (
	ProblemUnknownCapability ProblemType = "urn:ietf:params:jmap:error:unknownCapability"
	ProblemNotJSON           ProblemType = "urn:ietf:params:jmap:error:notJSON"
	ProblemNotRequest        ProblemType = "urn:ietf:params:jmap:error:notRequest"
	ProblemLimit             ProblemType = "urn:ietf:params:jmap:error:limit"
)

// RequestError is the problem-details document for a rejected request.
type RequestError struct {
	Type   ProblemType `json:"type"`
	Status int         `json:"status"`
	Detail string      `json:"detail,omitempty"`
	// Limit names the exceeded limit; required when Type is ProblemLimit.
	Limit string `json:"limit,omitempty"`
}

func (e *RequestError) Error() string {
	return string(e.Type) + ": " + e.Detail
}

func NotJSON() *RequestError {
	return &RequestError{
		Type:   ProblemNotJSON,
		Status: http.StatusBadRequest,
		Detail: "the request did not parse as I-JSON",
	}
}

func NotRequest(detail string) *RequestError {
	return &RequestError{
		Type:   ProblemNotRequest,
		Status: http.StatusBadRequest,
		Detail: detail,
	}
}

func UnknownCapability(uri string) *RequestError {
	return &RequestError{
		Type:   ProblemUnknownCapability,
		Status: http.StatusBadRequest,
		Detail: "unknown capability: " + uri,
	}
}

func OverLimit(limit string) *RequestError {
	return &RequestError{
		Type:   ProblemLimit,
		Status: http.StatusBadRequest,
		Detail: "request exceeds the " + limit + " limit",
		Limit:  limit,
	}
}

// MethodErrorKind enumerates per-call failures. A method error aborts only
// its own call; the remaining calls in the batch proceed (RFC 8620
// section 3.6.2).
type MethodErrorKind string

const (
	ErrServerUnavailable           MethodErrorKind = "serverUnavailable"
	ErrServerFail                  MethodErrorKind = "serverFail"
	ErrServerPartialFail           MethodErrorKind = "serverPartialFail"
	ErrUnknownMethod               MethodErrorKind = "unknownMethod"
	ErrInvalidArguments            MethodErrorKind = "invalidArguments"
	ErrInvalidResultReference      MethodErrorKind = "invalidResultReference"
	ErrForbidden                   MethodErrorKind = "forbidden"
	ErrAccountNotFound             MethodErrorKind = "accountNotFound"
	ErrAccountNotSupportedByMethod MethodErrorKind = "accountNotSupportedByMethod"
	ErrAccountReadOnly             MethodErrorKind = "accountReadOnly"
)

// MethodError is an error response embedded in-place in the method
// response stream.
type MethodError struct {
	Kind        MethodErrorKind
	Description string
}

func (e *MethodError) Error() string {
	if e.Description == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Description
}

// Invocation renders the error as the "error" invocation that takes the
// failed call's place in methodResponses, echoing its call id.
func (e *MethodError) Invocation(callID string) Invocation {
	args := Arguments{
		"type": Absolute(json.RawMessage(mustMarshal(string(e.Kind)))),
	}
	if e.Description != "" {
		args["description"] = Absolute(json.RawMessage(mustMarshal(e.Description)))
	}
	return Invocation{Name: "error", Arguments: args, CallID: callID}
}

func mustMarshal(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

// SetErrorKind enumerates per-object failures inside Set/Copy-style
// responses (RFC 8620 section 5.3).
type SetErrorKind string

const (
	SetErrForbidden         SetErrorKind = "forbidden"
	SetErrOverQuota         SetErrorKind = "overQuota"
	SetErrTooLarge          SetErrorKind = "tooLarge"
	SetErrRateLimit         SetErrorKind = "rateLimit"
	SetErrNotFound          SetErrorKind = "notFound"
	SetErrInvalidPatch      SetErrorKind = "invalidPatch"
	SetErrWillDestroy       SetErrorKind = "willDestroy"
	SetErrInvalidProperties SetErrorKind = "invalidProperties"
	SetErrSingleton         SetErrorKind = "singleton"
)

// SetError is collected per affected id inside an otherwise-successful
// method response.
type SetError struct {
	Type        SetErrorKind `json:"type"`
	Description string       `json:"description,omitempty"`
	// Properties lists the offending properties for invalidProperties.
	Properties []string `json:"properties,omitempty"`
}
