package observability

// SocketEvent is the envelope published to the events exchange for every
// websocket connect, disconnect, and error on the messaging service.
type SocketEvent struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// TraceHeaders carries request and trace correlation ids on published
// socket events.
func TraceHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
