// Package jmap implements the wire-level shapes of RFC 8620: invocations,
// request/response envelopes, result references and the protocol error
// taxonomy. It is a pure shape/tagging transform; no semantic validation of
// argument values happens here.
package jmap

import (
	"encoding/json"
	"fmt"
	"strings"
)

// referencePrefix marks an argument name as a result reference on the wire.
// The prefix is not part of the logical argument name.
const referencePrefix = "#"

// ResultReference points into the arguments of a previously produced
// response instead of supplying a value literally.
type ResultReference struct {
	// ResultOf is the method call id of a previous call in the request.
	ResultOf string `json:"resultOf"`
	// Name is the required method name of the referenced response.
	Name string `json:"name"`
	// Path is a JSON Pointer into the referenced response's arguments,
	// extended with "*" to map through an array.
	Path string `json:"path"`
}

// Argument is a tagged variant: either an absolute JSON value or a
// reference to an earlier result.
type Argument struct {
	// Value holds the raw JSON of an absolute argument. Nil when the
	// argument is a reference.
	Value json.RawMessage
	// Reference is non-nil for result-reference arguments.
	Reference *ResultReference
}

// Absolute wraps a raw JSON value as an absolute argument.
func Absolute(raw json.RawMessage) Argument {
	return Argument{Value: raw}
}

// Reference wraps a result reference as an argument.
func Reference(ref ResultReference) Argument {
	return Argument{Reference: &ref}
}

// Arguments maps argument names (without the "#" wire prefix) to their
// tagged values.
type Arguments map[string]Argument

// MarshalJSON re-applies the "#" prefix to reference argument names and
// emits absolute values verbatim, round-tripping exactly with UnmarshalJSON.
func (a Arguments) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(a))
	for name, arg := range a {
		if arg.Reference != nil {
			raw, err := json.Marshal(arg.Reference)
			if err != nil {
				return nil, err
			}
			out[referencePrefix+name] = raw
			continue
		}
		out[name] = arg.Value
	}
	return json.Marshal(out)
}

func (a *Arguments) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	args := make(Arguments, len(raw))
	for key, value := range raw {
		if name, ok := strings.CutPrefix(key, referencePrefix); ok {
			var ref ResultReference
			if err := json.Unmarshal(value, &ref); err != nil {
				return fmt.Errorf("argument %q: %w", key, err)
			}
			args[name] = Argument{Reference: &ref}
			continue
		}
		args[key] = Argument{Value: value}
	}

	*a = args
	return nil
}

// Decoded returns the arguments as a plain value tree, with absolute values
// unmarshalled and references left out. Used when pointer-walking a
// response's arguments, which never contain references.
func (a Arguments) Decoded() (map[string]any, error) {
	out := make(map[string]any, len(a))
	for name, arg := range a {
		if arg.Reference != nil {
			continue
		}
		var v any
		if err := json.Unmarshal(arg.Value, &v); err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// AbsoluteArguments builds Arguments from a resolved value map, marshalling
// each value. Handler results pass through here on their way into a
// response invocation.
func AbsoluteArguments(values map[string]any) (Arguments, error) {
	args := make(Arguments, len(values))
	for name, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", name, err)
		}
		args[name] = Argument{Value: raw}
	}
	return args, nil
}

// Invocation is the 3-tuple representing one method call or response:
// a method name, named arguments, and a client-assigned call id echoed
// back verbatim.
type Invocation struct {
	Name      string
	Arguments Arguments
	CallID    string
}

// MarshalJSON encodes the invocation as the fixed 3-element array mandated
// by RFC 8620 section 3.2.
func (i Invocation) MarshalJSON() ([]byte, error) {
	args := i.Arguments
	if args == nil {
		args = Arguments{}
	}
	return json.Marshal([]any{i.Name, args, i.CallID})
}

func (i *Invocation) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("invocation must have exactly 3 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &i.Name); err != nil {
		return fmt.Errorf("invocation name: %w", err)
	}
	if err := json.Unmarshal(parts[1], &i.Arguments); err != nil {
		return fmt.Errorf("invocation arguments: %w", err)
	}
	if err := json.Unmarshal(parts[2], &i.CallID); err != nil {
		return fmt.Errorf("invocation call id: %w", err)
	}
	return nil
}
