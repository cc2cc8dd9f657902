// Package codec registers a JSON codec with gRPC so services can exchange
// plain Go structs under the "application/grpc+json" content subtype.
package codec

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const Name = "json"

type JSON struct{}

func (JSON) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (JSON) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (JSON) Name() string { return Name }

func init() {
	encoding.RegisterCodec(JSON{})
}
