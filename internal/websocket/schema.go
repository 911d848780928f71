package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionReportHeight Action = "report_height"
	ActionTransition   Action = "transition"
	ActionAnswer       Action = "answer"
	ActionCommit       Action = "commit"
	ActionSkip         Action = "skip"
	ActionLock         Action = "lock"
	ActionEditing      Action = "editing"
	ActionInvalidate   Action = "invalidate"
	ActionSubmit       Action = "submit"
	ActionPing         Action = "ping"
)

// RequestPayload is the single client message shape; which fields are
// meaningful depends on the action. Peeking at Action first avoids a
// per-action decode pass.
type RequestPayload struct {
	Action Action `json:"action"`

	ItemID string `json:"item_id,omitempty"`

	// report_height
	Height float64 `json:"height,omitempty"`

	// answer
	Values []string `json:"values,omitempty"`
	Text   *string  `json:"text,omitempty"`

	// commit
	Status string `json:"status,omitempty"`

	// lock / editing
	Locked  bool `json:"locked,omitempty"`
	Editing bool `json:"editing,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventAck    Event = "ack"
	EventLayout Event = "layout"
	EventReport Event = "report"
	EventPong   Event = "pong"
)

type AckResponse struct {
	Event  Event  `json:"event"`
	Action Action `json:"action"`
}

// LayoutResponse pushes a recomputed layout to the device. Payload is
// the layout.Document; kept opaque here so the schema package does not
// import the engine.
type LayoutResponse struct {
	Event  Event       `json:"event"`
	Layout interface{} `json:"layout"`
}

// ReportResponse delivers the scored submission report.
type ReportResponse struct {
	Event  Event       `json:"event"`
	Status string      `json:"status"`
	Report interface{} `json:"report"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
