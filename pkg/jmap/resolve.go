package jmap

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ResolvedArguments is the flat parameter map handed to a method handler
// once every reference has been chased. Produced per call, consumed once.
type ResolvedArguments map[string]any

// ResolveArguments turns an invocation's arguments into resolved values.
// References are chased against prior: the responses accumulated so far in
// the current batch. Passing only the accumulated responses is what makes
// forward references structurally impossible.
//
// Resolution is all-or-nothing per call: any single failing argument fails
// the whole map with an invalidResultReference method error.
func ResolveArguments(prior []Invocation, args Arguments) (ResolvedArguments, *MethodError) {
	resolved := make(ResolvedArguments, len(args))

	for name, arg := range args {
		if arg.Reference == nil {
			var value any
			if err := json.Unmarshal(arg.Value, &value); err != nil {
				return nil, &MethodError{Kind: ErrInvalidArguments, Description: "argument " + name + " is not valid JSON"}
			}
			resolved[name] = value
			continue
		}

		value, err := resolveReference(prior, *arg.Reference)
		if err != nil {
			return nil, err
		}
		resolved[name] = value
	}

	return resolved, nil
}

func resolveReference(prior []Invocation, ref ResultReference) (any, *MethodError) {
	for _, inv := range prior {
		if inv.CallID != ref.ResultOf || inv.Name != ref.Name {
			continue
		}

		tree, err := inv.Arguments.Decoded()
		if err != nil {
			return nil, &MethodError{Kind: ErrInvalidResultReference, Description: "referenced response is not decodable"}
		}

		value, ok := walkPointer(any(tree), splitPointer(ref.Path))
		if !ok {
			return nil, &MethodError{
				Kind:        ErrInvalidResultReference,
				Description: "path " + ref.Path + " does not resolve within " + ref.Name + " (" + ref.ResultOf + ")",
			}
		}
		return value, nil
	}

	return nil, &MethodError{
		Kind:        ErrInvalidResultReference,
		Description: "no prior response " + ref.Name + " with call id " + ref.ResultOf,
	}
}

// splitPointer breaks a JSON Pointer into segments. The leading "/" is
// optional; RFC 6901 escapes (~0, ~1) are honoured.
func splitPointer(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		seg = strings.ReplaceAll(seg, "~1", "/")
		segments[i] = strings.ReplaceAll(seg, "~0", "~")
	}
	return segments
}

// walkPointer traverses value by segments. A segment is a map key, an
// array index, or "*", which maps the remainder of the path over every
// element of the current array and collects the results, flattening one
// level when the per-element result is itself an array (RFC 8620
// section 3.7).
func walkPointer(value any, segments []string) (any, bool) {
	if len(segments) == 0 {
		return value, true
	}

	seg, rest := segments[0], segments[1:]

	switch node := value.(type) {
	case map[string]any:
		child, ok := node[seg]
		if !ok {
			return nil, false
		}
		return walkPointer(child, rest)

	case []any:
		if seg == "*" {
			collected := make([]any, 0, len(node))
			for _, elem := range node {
				result, ok := walkPointer(elem, rest)
				if !ok {
					return nil, false
				}
				if nested, isArray := result.([]any); isArray {
					collected = append(collected, nested...)
				} else {
					collected = append(collected, result)
				}
			}
			return collected, true
		}

		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(node) {
			return nil, false
		}
		return walkPointer(node[idx], rest)

	default:
		// Scalar with path remaining: type mismatch.
		return nil, false
	}
}
