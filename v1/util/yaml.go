// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package util

import (
	"sigs.k8s.io/yaml"
)

// MarshalYAML encodes x as YAML. Field names follow the json struct tags, so
// a value renders with the same keys as MarshalIndentJSON.
func MarshalYAML(x any) ([]byte, error) {
	return yaml.Marshal(x)
}
