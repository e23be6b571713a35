package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/abgdnv/productstore/pkg/web"
)

const errValidationFailed = "Validation failed"

// ErrorResponse is the body of a 400 answer.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details"`
}

type payloadKey struct{}

// WithPayload stores a decoded request body in ctx.
func WithPayload[T any](ctx context.Context, payload *T) context.Context {
	return context.WithValue(ctx, payloadKey{}, payload)
}

// PayloadFrom returns the body stored by WithPayload, if it has type T.
func PayloadFrom[T any](ctx context.Context) (*T, bool) {
	payload, ok := ctx.Value(payloadKey{}).(*T)
	return payload, ok && payload != nil
}

// Body returns a middleware that decodes the JSON request body into T and validates it.
// Invalid bodies are answered with 400 and the list of violations; valid ones are stored
// in the request context for the next handler.
func Body[T any](v *Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload := new(T)
			details, decoded := decode(r.Body, payload)
			if decoded {
				details = append(details, v.Struct(payload)...)
			}
			if len(details) > 0 {
				logger.DebugContext(r.Context(), "Request body rejected", "path", r.URL.Path, "details", details)
				web.RespondJSON(w, logger, http.StatusBadRequest, ErrorResponse{Error: errValidationFailed, Details: details})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPayload(r.Context(), payload)))
		})
	}
}

// decode reads a JSON object from body into dst. An empty body leaves dst untouched.
// Each key is decoded on its own so that every unknown key and every type mismatch is
// reported; fields that fail stay nil. The bool reports whether dst may be validated.
func decode[T any](body io.Reader, dst *T) ([]string, bool) {
	if body == nil {
		return nil, true
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return []string{`"value" must be valid JSON`}, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, true
	}
	if !json.Valid(raw) {
		return []string{`"value" must be valid JSON`}, false
	}
	if raw[0] != '{' {
		return []string{`"value" must be of type object`}, false
	}

	keys, values, err := objectMembers(raw)
	if err != nil {
		return []string{`"value" must be valid JSON`}, false
	}
	var details []string
	for i, key := range keys {
		if msg, ok := decodeMember(key, values[i], dst); !ok {
			details = append(details, msg)
		}
	}
	return details, true
}

// objectMembers splits a JSON object into its keys and raw values, in body order.
func objectMembers(raw []byte) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	var keys []string
	var values []json.RawMessage
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values = append(values, value)
	}
	return keys, values, nil
}

// decodeMember decodes the single member key into dst. It first decodes into a scratch
// value so a rejected member never leaves a half-set field behind.
func decodeMember[T any](key string, value json.RawMessage, dst *T) (string, bool) {
	member, err := json.Marshal(map[string]json.RawMessage{key: value})
	if err != nil {
		return `"value" must be valid JSON`, false
	}
	var scratch T
	err = decodeStrict(member, &scratch)

	var typeErr *json.UnmarshalTypeError
	switch {
	case err == nil:
	case errors.As(err, &typeErr):
		whole, ok := wholeNumber(typeErr, value)
		if !ok {
			return typeMessage(key, typeErr), false
		}
		// integral floats such as 10.0 are accepted for integer fields
		return decodeMember(key, whole, dst)
	case strings.HasPrefix(err.Error(), unknownFieldPrefix):
		return fmt.Sprintf("%q is not allowed", key), false
	default:
		return `"value" must be valid JSON`, false
	}
	if err := decodeStrict(member, dst); err != nil {
		return `"value" must be valid JSON`, false
	}
	return "", true
}

func decodeStrict(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

const unknownFieldPrefix = "json: unknown field "

// maxSafeInteger is the largest integer a JSON client can represent exactly.
const maxSafeInteger = 1<<53 - 1

// wholeNumber rewrites a JSON number such as 10.0 or 1e1 aimed at an integer field
// into its integer form. It reports false when the number has a fractional part.
func wholeNumber(e *json.UnmarshalTypeError, value json.RawMessage) (json.RawMessage, bool) {
	if !isIntKind(targetKind(e)) || !strings.HasPrefix(e.Value, "number") {
		return nil, false
	}
	f, err := strconv.ParseFloat(string(value), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > maxSafeInteger {
		return nil, false
	}
	whole := strconv.FormatInt(int64(f), 10)
	if whole == string(value) {
		return nil, false
	}
	return json.RawMessage(whole), true
}

func targetKind(e *json.UnmarshalTypeError) reflect.Kind {
	kind := e.Type.Kind()
	if kind == reflect.Pointer {
		kind = e.Type.Elem().Kind()
	}
	return kind
}

func isIntKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func typeMessage(key string, e *json.UnmarshalTypeError) string {
	field := fmt.Sprintf("%q", key)
	kind := targetKind(e)
	switch {
	case kind == reflect.String:
		return field + " must be a string"
	case isIntKind(kind):
		if strings.HasPrefix(e.Value, "number") {
			return field + " must be an integer"
		}
		return field + " must be a number"
	case kind == reflect.Float32 || kind == reflect.Float64:
		return field + " must be a number"
	case kind == reflect.Bool:
		return field + " must be a boolean"
	default:
		return field + " must be of type " + kind.String()
	}
}
