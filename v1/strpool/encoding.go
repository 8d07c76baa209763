// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package strpool

import (
	"bytes"
	"encoding/json"

	"go.yaml.in/yaml/v3"
)

// Handles serialize as their content, never as pool coordinates; indices are
// meaningless outside the process and pool that assigned them. Decoding interns
// the text into the default pool.

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) {
	return h.Bytes(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Text that is not valid
// UTF-8 is rejected with an InvalidEncodingErr.
func (h *Handle) UnmarshalText(text []byte) error {
	v, err := Default().InternBytes(text)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (h Handle) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.resolve())
}

// UnmarshalJSON implements json.Unmarshaler. A JSON null decodes to the zero
// Handle.
func (h *Handle) UnmarshalJSON(bs []byte) error {
	if bytes.Equal(bs, []byte("null")) {
		*h = Handle{}
		return nil
	}
	var s string
	if err := json.Unmarshal(bs, &s); err != nil {
		return err
	}
	*h = Default().Intern(s)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (h Handle) MarshalYAML() (any, error) {
	return h.resolve(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (h *Handle) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	*h = Default().Intern(s)
	return nil
}
