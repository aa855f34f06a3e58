package codec

import (
	"bytes"
	"encoding/json"
)

// JSON is the standard-library JSON codec. Output is indented so manifests
// stay readable in object store consoles.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

// Unmarshal decodes the JSON data into v. Unknown fields are rejected.
func (JSON) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Name returns "json".
func (JSON) Name() string { return "json" }

// Default is the codec of manifests and command line documents.
var Default Codec = JSON{}
