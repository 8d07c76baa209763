// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package util contains decoding helpers shared by the strpool command.
package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// UnmarshalJSON parses the JSON encoded data and stores the result in the value
// pointed to by x. Trailing data after the first JSON value is an error.
func UnmarshalJSON(bs []byte, x any) error {
	decoder := NewJSONDecoder(bytes.NewBuffer(bs))
	if err := decoder.Decode(x); err != nil {
		return err
	}

	// Since decoder.Decode validates only the first json structure in bytes,
	// check if decoder has more bytes to consume to validate whole input bytes.
	tok, err := decoder.Token()
	if tok != nil {
		return fmt.Errorf("error: invalid character '%s' after top-level value", tok)
	}
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

// NewJSONDecoder returns a new decoder that reads from r and decodes numbers
// as json.Number.
func NewJSONDecoder(r io.Reader) *json.Decoder {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	return decoder
}

// Unmarshal decodes a YAML or JSON value into the specified type. JSON input
// is decoded with UnmarshalJSON.
func Unmarshal(bs []byte, v any) error {
	if len(bs) > 2 && bs[0] == 0xef && bs[1] == 0xbb && bs[2] == 0xbf {
		bs = bs[3:] // Strip UTF-8 BOM, see https://www.rfc-editor.org/rfc/rfc8259#section-8.1
	}

	if json.Valid(bs) {
		return UnmarshalJSON(bs, v)
	}
	// YAML 1.2 resolution keeps words such as y, no and on as strings.
	return yaml.Unmarshal(bs, v)
}

// SeedFile is the document accepted by LoadStrings when it is not a bare
// list.
type SeedFile struct {
	Strings []string `json:"strings" yaml:"strings"`
}

// LoadStrings decodes a list of strings from a JSON or YAML document. The
// document is either a list of strings or an object with a "strings" list.
func LoadStrings(bs []byte) ([]string, error) {
	var list []string
	if err := Unmarshal(bs, &list); err == nil {
		return list, nil
	}

	var seed SeedFile
	if err := Unmarshal(bs, &seed); err != nil {
		return nil, fmt.Errorf("seed must be a list of strings or an object with a strings list: %w", err)
	}
	return seed.Strings, nil
}
