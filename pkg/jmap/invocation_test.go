package jmap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvocation_RoundTrip(t *testing.T) {
	original := Invocation{
		Name: "Contact/get",
		Arguments: Arguments{
			"accountId": Absolute(json.RawMessage(`"a1"`)),
			"ids": Reference(ResultReference{
				ResultOf: "c0",
				Name:     "Contact/query",
				Path:     "/ids",
			}),
		},
		CallID: "c1",
	}

	encoded, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Invocation
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.Equal(t, original.Name, decoded.Name)
	assert.Equal(t, original.CallID, decoded.CallID)
	assert.JSONEq(t, `"a1"`, string(decoded.Arguments["accountId"].Value))
	require.NotNil(t, decoded.Arguments["ids"].Reference)
	assert.Equal(t, *original.Arguments["ids"].Reference, *decoded.Arguments["ids"].Reference)
}

func TestInvocation_WireShape(t *testing.T) {
	inv := Invocation{
		Name: "Core/echo",
		Arguments: Arguments{
			"foo": Absolute(json.RawMessage(`"bar"`)),
			"ref": Reference(ResultReference{ResultOf: "c0", Name: "Core/echo", Path: "/foo"}),
		},
		CallID: "c1",
	}

	encoded, err := json.Marshal(inv)
	require.NoError(t, err)

	// Reference keys carry the octothorpe on the wire, absolute keys don't.
	assert.JSONEq(t,
		`["Core/echo", {"foo": "bar", "#ref": {"resultOf": "c0", "name": "Core/echo", "path": "/foo"}}, "c1"]`,
		string(encoded))
}

func TestInvocation_DecodeRejectsBadShapes(t *testing.T) {
	cases := map[string]string{
		"too few elements":  `["Core/echo", {}]`,
		"too many elements": `["Core/echo", {}, "c1", "extra"]`,
		"name not a string": `[42, {}, "c1"]`,
		"id not a string":   `["Core/echo", {}, 42]`,
		"args not a map":    `["Core/echo", [], "c1"]`,
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			var inv Invocation
			assert.Error(t, json.Unmarshal([]byte(input), &inv))
		})
	}
}

func TestArguments_ReferenceValueMustBeObject(t *testing.T) {
	var args Arguments
	err := json.Unmarshal([]byte(`{"#ids": "not-an-object"}`), &args)
	assert.Error(t, err)
}

func TestRequest_PreservesCallOrder(t *testing.T) {
	body := `{
		"using": ["urn:ietf:params:jmap:core"],
		"methodCalls": [
			["Core/echo", {"a": 1}, "c1"],
			["Core/echo", {"b": 2}, "c2"],
			["Core/echo", {"c": 3}, "c3"]
		]
	}`

	req, problem := DecodeRequest([]byte(body))
	require.Nil(t, problem)
	require.Len(t, req.MethodCalls, 3)
	assert.Equal(t, "c1", req.MethodCalls[0].CallID)
	assert.Equal(t, "c2", req.MethodCalls[1].CallID)
	assert.Equal(t, "c3", req.MethodCalls[2].CallID)
}

func TestDecodeRequest_Problems(t *testing.T) {
	t.Run("not json", func(t *testing.T) {
		_, problem := DecodeRequest([]byte(`{"using": [`))
		require.NotNil(t, problem)
		assert.Equal(t, ProblemNotJSON, problem.Type)
	})

	t.Run("not a request", func(t *testing.T) {
		_, problem := DecodeRequest([]byte(`{"hello": "world"}`))
		require.NotNil(t, problem)
		assert.Equal(t, ProblemNotRequest, problem.Type)
	})

	t.Run("method call with wrong arity", func(t *testing.T) {
		_, problem := DecodeRequest([]byte(`{"using": [], "methodCalls": [["Core/echo", {}]]}`))
		require.NotNil(t, problem)
		assert.Equal(t, ProblemNotRequest, problem.Type)
	})
}

func TestMethodError_Invocation(t *testing.T) {
	methodErr := &MethodError{Kind: ErrUnknownMethod, Description: "no such method"}
	inv := methodErr.Invocation("c9")

	encoded, err := json.Marshal(inv)
	require.NoError(t, err)
	assert.JSONEq(t, `["error", {"type": "unknownMethod", "description": "no such method"}, "c9"]`, string(encoded))
}
