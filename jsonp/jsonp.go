// CLAUDE:SUMMARY Decodes marketplace response bodies that arrive either as plain JSON or as callback-wrapped JSONP.
// Package jsonp decodes response bodies that are either plain JSON or a JSON
// value wrapped in a JavaScript callback invocation such as
// "mtopjsonp12({...})".
package jsonp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Kind classifies a decode failure.
type Kind int

const (
	// KindUnrecognizedEnvelope: the body is neither JSON nor a callback wrapper.
	KindUnrecognizedEnvelope Kind = iota + 1
	// KindMalformedPayload: a callback wrapper was found but its interior is not JSON.
	KindMalformedPayload
)

func (k Kind) String() string {
	switch k {
	case KindUnrecognizedEnvelope:
		return "unrecognized envelope"
	case KindMalformedPayload:
		return "malformed payload"
	default:
		return "unknown"
	}
}

var (
	ErrUnrecognizedEnvelope = errors.New("jsonp: unrecognized envelope")
	ErrMalformedPayload     = errors.New("jsonp: malformed payload")
)

// DecodeError reports why a body could not be decoded.
type DecodeError struct {
	Kind     Kind
	Callback string // set for KindMalformedPayload
	Err      error  // underlying JSON error, if any
}

func (e *DecodeError) Error() string {
	if e.Callback != "" {
		return fmt.Sprintf("jsonp: %s in %s(...): %v", e.Kind, e.Callback, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("jsonp: %s: %v", e.Kind, e.Err)
	}
	return "jsonp: " + e.Kind.String()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is lets errors.Is match the Kind sentinels.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrUnrecognizedEnvelope:
		return e.Kind == KindUnrecognizedEnvelope
	case ErrMalformedPayload:
		return e.Kind == KindMalformedPayload
	}
	return false
}

// envelope matches "name(...)" with an optional trailing semicolon. The
// callback name is a JavaScript identifier, usually ending in a sequence number.
var envelope = regexp.MustCompile(`(?s)^([A-Za-z_$][A-Za-z0-9_$.]*)\s*\((.*)\)\s*;?$`)

// Decode returns the JSON value carried by raw. Plain JSON is returned as is
// (whitespace trimmed); a callback wrapper is stripped and its interior validated.
func Decode(raw []byte) (json.RawMessage, error) {
	body := bytes.TrimSpace(raw)
	if json.Valid(body) {
		return json.RawMessage(body), nil
	}

	m := envelope.FindSubmatch(body)
	if m == nil {
		return nil, &DecodeError{Kind: KindUnrecognizedEnvelope}
	}
	inner := bytes.TrimSpace(m[2])
	if !json.Valid(inner) {
		var v any
		err := json.Unmarshal(inner, &v)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return nil, &DecodeError{Kind: KindMalformedPayload, Callback: string(m[1]), Err: err}
	}
	return json.RawMessage(inner), nil
}

// DecodeStrict accepts plain JSON only.
func DecodeStrict(raw []byte) (json.RawMessage, error) {
	body := bytes.TrimSpace(raw)
	if !json.Valid(body) {
		return nil, &DecodeError{Kind: KindUnrecognizedEnvelope}
	}
	return json.RawMessage(body), nil
}

// Wrap produces callback(body), the inverse of Decode.
func Wrap(callback string, body []byte) []byte {
	out := make([]byte, 0, len(callback)+len(body)+2)
	out = append(out, callback...)
	out = append(out, '(')
	out = append(out, body...)
	return append(out, ')')
}
