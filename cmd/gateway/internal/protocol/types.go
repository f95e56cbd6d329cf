package protocol

const (
	ActionSubscribe = "subscribe"
	ActionList      = "list"
)

const (
	TypeAck      = "ack"
	TypeError    = "error"
	TypeTick     = "tick"
	TypeSnapshot = "snapshot"
)

type WSRequest struct {
	Action  string         `json:"action"`
	Payload RequestPayload `json:"payload"`
	ID      string         `json:"id,omitempty"`
}

type RequestPayload struct {
	Tickers []string `json:"tickers"`
}

type WSResponse struct {
	Type    string      `json:"type"`             // "ack", "error", "tick", "snapshot"
	ID      string      `json:"id,omitempty"`     // Matches request ID
	Status  string      `json:"status,omitempty"` // "success", "error"
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
