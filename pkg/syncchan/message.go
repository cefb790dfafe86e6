package syncchan

import "encoding/json"

// Logical operations understood by the backing store, shared by the websocket
// frames and the plain HTTP endpoints.
const (
	MsgGetSchema  = "get_schema"
	MsgSaveSchema = "save_schema"
	MsgFinish     = "finish"
	MsgHealth     = "health"
)

// Response statuses used on the wire.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Request is a client-to-store frame. IDs are unique per connection and echo
// back on the matching response.
type Request struct {
	ID   uint64          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is a store-to-client frame. Status is "success" or "error"; an
// error carries a human-readable Message and no structured code beyond that.
type Response struct {
	ID      uint64          `json:"id"`
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
