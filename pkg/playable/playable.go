// Package playable holds the messages exchanged with websocket clients
package playable

// response keys pushed to clients
const (
	KeyGameState          = "gameState"
	KeyNotification       = "notification"
	KeyHoleCards          = "holeCards"
	KeyShowdown           = "showdown"
	KeyPendingTransaction = "pendingTransaction"
	KeyAvailability       = "availability"
	KeyActions            = "actions"
	KeyError              = "error"
	KeyStatus             = "status"
)

// Response is a message sent to a client
// Context echoes the context of the message it answers, if any
type Response struct {
	Key     string      `json:"key"`
	Value   string      `json:"value"`
	Data    interface{} `json:"data"`
	Context string      `json:"context"`
}

// OK returns a generic success response
func OK(ctx ...string) *Response {
	res := &Response{
		Key:   KeyStatus,
		Value: "OK",
	}

	if len(ctx) == 1 {
		res.Context = ctx[0]
	}

	return res
}

// Push returns a server-initiated response carrying data
func Push(key string, data interface{}) *Response {
	return &Response{
		Key:  key,
		Data: data,
	}
}

// ErrorResponse returns a response describing err
func ErrorResponse(ctx string, err error) *Response {
	return &Response{
		Key:     KeyError,
		Value:   err.Error(),
		Context: ctx,
	}
}

// PayloadIn is the format we expect from the JS client
type PayloadIn struct {
	Action         string         `json:"action"`
	AdditionalData AdditionalData `json:"additionalData"`

	// Context will be passed back on any outgoing message
	Context string `json:"context"`
}

// AdditionalData provides additional data in a payload
type AdditionalData map[string]interface{}

// GetString returns a string for the given key
func (a AdditionalData) GetString(key string) (string, bool) {
	s, ok := a[key].(string)
	return s, ok
}

// GetInt returns an integer value for the given key
func (a AdditionalData) GetInt(key string) (int, bool) {
	floatVal, ok := a[key].(float64)
	if !ok {
		return 0, false
	}

	return int(floatVal), true
}
