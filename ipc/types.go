package ipc

import "github.com/google/uuid"

// ClientID identifies the logical client a request or response belongs to. Several
// logical clients can multiplex over one connection.
type ClientID string

// NewClientID returns a fresh unique client ID.
func NewClientID() ClientID {
	return ClientID(uuid.NewString())
}

// RequestKind discriminates the request payload fields below.
type RequestKind string

const (
	RequestMoveForward RequestKind = "move-forward"
	RequestTurn        RequestKind = "turn"
	RequestPen         RequestKind = "pen"
	RequestClear       RequestKind = "clear"
	RequestPollState   RequestKind = "poll-state"
	RequestQuit        RequestKind = "quit"
)

// Request is a drawing command sent client->server.
// Only the fields relevant to Kind are set; the rest are left at their zero values.
type Request struct {
	Kind RequestKind

	// Distance is the move-forward distance. Negative moves backward.
	Distance float64 `json:",omitempty"`

	// Angle is the turn angle in radians. Positive turns counterclockwise.
	Angle float64 `json:",omitempty"`

	// PenDown, when non-nil, raises or lowers the pen.
	PenDown *bool `json:",omitempty"`
	// PenColor, when non-empty, changes the pen color.
	PenColor string `json:",omitempty"`
}

// ResponseKind discriminates the response payload fields below.
type ResponseKind string

const (
	ResponseAck   ResponseKind = "ack"
	ResponseState ResponseKind = "state"
	ResponseError ResponseKind = "error"
)

// Response is sent server->client, one per request.
type Response struct {
	Kind ResponseKind

	// State is set when Kind is "state".
	State *SceneState `json:",omitempty"`

	// Error is set when Kind is "error".
	Error string `json:",omitempty"`
}

type Point struct {
	X float64
	Y float64
}

// Segment is a drawn line segment.
type Segment struct {
	Start Point
	End   Point
	Color string
}

// SceneState is a snapshot of the server's scene.
type SceneState struct {
	Position Point
	Heading  float64
	PenDown  bool
	PenColor string
	Segments []Segment
}

// requestEnvelope is the wire message sent client->server.
type requestEnvelope struct {
	ClientID ClientID
	Req      Request
}

// responseEnvelope is the wire message sent server->client.
type responseEnvelope struct {
	ClientID ClientID
	Resp     Response
}
