package service

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONCodec is the Connect codec for the DrinksService messages, which are
// plain Go structs rather than generated protobuf types. It is registered
// under "json" so the Connect protocol's application/json content type
// resolves to it.
type JSONCodec struct{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal implements connect.Codec. Unknown fields are rejected so client
// typos surface as errors instead of silently defaulting.
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(msg); err != nil {
		return fmt.Errorf("invalid JSON message: %w", err)
	}
	return nil
}
