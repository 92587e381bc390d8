package extension

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/veldt-dev/veldt/pkg/jmap"
)

// Typed adapts a handler with a declared parameter and result shape to the
// uniform Handler interface: deserialize params, execute, serialize result.
// A parameter decode failure yields invalidArguments; a result encode
// failure yields serverFail.
func Typed[P, R any](fn func(ctx context.Context, params P) (R, error)) Handler {
	return HandlerFunc(func(ctx context.Context, args jmap.ResolvedArguments) (map[string]any, error) {
		var params P
		if err := decodeArguments(args, &params); err != nil {
			return nil, &jmap.MethodError{Kind: jmap.ErrInvalidArguments, Description: err.Error()}
		}

		result, err := fn(ctx, params)
		if err != nil {
			return nil, err
		}

		return encodeResult(result)
	})
}

// decodeArguments round-trips the resolved value map through JSON so the
// target struct's json tags and type checks apply, the same role the wire
// decoder plays for literal arguments.
func decodeArguments(args jmap.ResolvedArguments, target any) error {
	raw, err := json.Marshal(map[string]any(args))
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}

func encodeResult(result any) (map[string]any, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, &jmap.MethodError{Kind: jmap.ErrServerFail, Description: "result not serializable"}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &jmap.MethodError{Kind: jmap.ErrServerFail, Description: "result is not an object"}
	}
	return out, nil
}
