// Package api defines the RPC messages of the officevote services and the
// Connect handlers and clients that carry them.
//
// Messages are plain Go structs encoded as JSON. The procedure names follow
// the Connect convention /<package>.<Service>/<Method>.
package api

import (
	"encoding/json"

	"connectrpc.com/connect"
)

const codecName = "json"

// jsonCodec replaces Connect's protobuf JSON codec so handlers can use plain
// structs.
type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// WithJSON is the option every handler and client must carry.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
