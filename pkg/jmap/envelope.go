package jmap

import (
	"encoding/json"
	"fmt"
)

// Request is the top-level API request object. methodCalls ordering is
// significant and preserved through decoding.
type Request struct {
	Using       []string     `json:"using"`
	MethodCalls []Invocation `json:"methodCalls"`
	CreatedIDs  map[Id]Id    `json:"createdIds,omitempty"`
}

// Response mirrors Request: one response invocation per method call, in
// input order, plus the session state token current at the end of the
// batch.
type Response struct {
	MethodResponses []Invocation `json:"methodResponses"`
	CreatedIDs      map[Id]Id    `json:"createdIds,omitempty"`
	SessionState    SessionState `json:"sessionState"`
}

// DecodeRequest parses a request body. A JSON syntax failure and a shape
// failure are distinguished so the transport can answer with the right
// problem document (notJSON vs notRequest).
func DecodeRequest(body []byte) (*Request, *RequestError) {
	if !json.Valid(body) {
		return nil, NotJSON()
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, NotRequest(err.Error())
	}
	if req.Using == nil || req.MethodCalls == nil {
		return nil, NotRequest("missing using or methodCalls property")
	}
	return &req, nil
}

// EncodeResponse serialises a response envelope.
func EncodeResponse(resp *Response) ([]byte, error) {
	out, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	return out, nil
}
