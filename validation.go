package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
)

const maxBodyBytes = 1 << 20

type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError collects every problem found in a request body.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, strings.Join(fe.Loc, ".")+": "+fe.Msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field string, msg string, typ string) {
	loc := []string{"body"}
	if field != "" {
		loc = append(loc, field)
	}
	e.Errors = append(e.Errors, FieldError{Loc: loc, Msg: msg, Type: typ})
}

func (e *ValidationError) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// bodyFields decodes a JSON object body into its raw fields.
func bodyFields(r *http.Request) (map[string]json.RawMessage, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		verr := &ValidationError{}
		verr.add("", "Unable to read request body", "body_read")
		return nil, verr
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		verr := &ValidationError{}
		verr.add("", "Field required", "missing")
		return nil, verr
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		verr := &ValidationError{}
		if json.Valid(data) {
			verr.add("", "Input should be a valid dictionary", "dict_type")
		} else {
			verr.add("", "JSON decode error", "json_invalid")
		}
		return nil, verr
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func requireString(fields map[string]json.RawMessage, name string, verr *ValidationError) string {
	raw, ok := fields[name]
	if !ok {
		verr.add(name, "Field required", "missing")
		return ""
	}
	var value string
	if isNull(raw) || json.Unmarshal(raw, &value) != nil {
		verr.add(name, "Input should be a valid string", "string_type")
		return ""
	}
	return value
}

// boolWords are the strings accepted as booleans, compared case-insensitively.
var boolWords = map[string]bool{
	"0": false, "off": false, "f": false, "false": false, "n": false, "no": false,
	"1": true, "on": true, "t": true, "true": true, "y": true, "yes": true,
}

// requireBool accepts JSON booleans, the numbers 0 and 1, and the strings in
// boolWords.
func requireBool(fields map[string]json.RawMessage, name string, verr *ValidationError) bool {
	raw, ok := fields[name]
	if !ok {
		verr.add(name, "Field required", "missing")
		return false
	}
	if isNull(raw) {
		verr.add(name, "Input should be a valid boolean", "bool_type")
		return false
	}

	var flag bool
	if json.Unmarshal(raw, &flag) == nil {
		return flag
	}
	var text string
	if json.Unmarshal(raw, &text) == nil {
		value, ok := boolWords[strings.ToLower(strings.TrimSpace(text))]
		if !ok {
			verr.add(name, "Input should be a valid boolean, unable to interpret input", "bool_parsing")
			return false
		}
		return value
	}
	var number float64
	if json.Unmarshal(raw, &number) == nil {
		switch number {
		case 0:
			return false
		case 1:
			return true
		}
		verr.add(name, "Input should be a valid boolean, unable to interpret input", "bool_parsing")
		return false
	}
	verr.add(name, "Input should be a valid boolean", "bool_type")
	return false
}

// optionalIntInRange accepts integral JSON numbers and strings holding a
// base-10 integer.
func optionalIntInRange(fields map[string]json.RawMessage, name string, fallback, min, max int, verr *ValidationError) int {
	raw, ok := fields[name]
	if !ok {
		return fallback
	}
	if isNull(raw) {
		verr.add(name, "Input should be a valid integer", "int_type")
		return fallback
	}

	var number float64
	var text string
	switch {
	case json.Unmarshal(raw, &number) == nil:
		if number != math.Trunc(number) {
			verr.add(name, "Input should be a valid integer, got a number with a fractional part", "int_from_float")
			return fallback
		}
	case json.Unmarshal(raw, &text) == nil:
		parsed, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			verr.add(name, "Input should be a valid integer, unable to parse string as an integer", "int_parsing")
			return fallback
		}
		number = float64(parsed)
	default:
		verr.add(name, "Input should be a valid integer", "int_type")
		return fallback
	}

	if number < float64(min) {
		verr.add(name, fmt.Sprintf("Input should be greater than or equal to %d", min), "greater_than_equal")
		return fallback
	}
	if number > float64(max) {
		verr.add(name, fmt.Sprintf("Input should be less than or equal to %d", max), "less_than_equal")
		return fallback
	}
	return int(number)
}
