// util/json.go
// Copyright(c) 2022-2024 vacation contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

///////////////////////////////////////////////////////////////////////////
// JSON

// UnmarshalJSONBytes unmarshals the bytes into the given type, reporting
// syntax and type errors with line and character positions.
func UnmarshalJSONBytes[T any](b []byte, out *T) error {
	return decorateJSONError(b, json.Unmarshal(b, out))
}

// UnmarshalStrictJSON is like UnmarshalJSONBytes but fails if the JSON
// contains object keys that do not correspond to fields in T; this
// catches misspelled configuration options.
func UnmarshalStrictJSON[T any](b []byte, out *T) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	err := dec.Decode(out)
	if err != nil && strings.HasPrefix(err.Error(), "json: unknown field") {
		return fmt.Errorf("%s", strings.TrimPrefix(err.Error(), "json: "))
	}
	return decorateJSONError(b, err)
}

func decorateJSONError(b []byte, err error) error {
	if err == nil {
		return nil
	}

	decodeOffset := func(offset int64) (line, char int) {
		line, char = 1, 1
		for i := 0; i < int(offset) && i < len(b); i++ {
			if b[i] == '\n' {
				line++
				char = 1
			} else {
				char++
			}
		}
		return
	}

	var serr *json.SyntaxError
	var terr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &serr):
		line, char := decodeOffset(serr.Offset)
		return fmt.Errorf("Error at line %d, character %d: %w", line, char, serr)
	case errors.As(err, &terr):
		line, char := decodeOffset(terr.Offset)
		return fmt.Errorf("Error at line %d, character %d: %s value for %s invalid for type %s",
			line, char, terr.Value, terr.Field, terr.Type.String())
	default:
		return err
	}
}

// CheckJSON unmarshals the given JSON into a T, recording any error in
// the provided ErrorLogger. It returns the zero value of T on failure.
func CheckJSON[T any](contents []byte, e *ErrorLogger) T {
	var t T
	if err := UnmarshalStrictJSON(contents, &t); err != nil {
		e.Error(err)
		var zero T
		return zero
	}
	return t
}
