package render

import (
	"fmt"
	"math"
	"sync"

	"github.com/turtlegfx/canvas/ipc"
)

const defaultPenColor = "black"

// Scene holds the server-side drawing state: the turtle's pose, its pen, and the
// segments drawn so far. All clients share one scene.
type Scene struct {
	mu       sync.Mutex
	pos      ipc.Point
	heading  float64
	penDown  bool
	penColor string
	segments []ipc.Segment
}

// NewScene returns a scene with the turtle at the origin facing +x, pen down.
func NewScene() *Scene {
	return &Scene{
		penDown:  true,
		penColor: defaultPenColor,
	}
}

// Apply applies one request to the scene and returns the response for it.
func (s *Scene) Apply(req ipc.Request) ipc.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Kind {
	case ipc.RequestMoveForward:
		end := ipc.Point{
			X: s.pos.X + req.Distance*math.Cos(s.heading),
			Y: s.pos.Y + req.Distance*math.Sin(s.heading),
		}
		if s.penDown {
			s.segments = append(s.segments, ipc.Segment{Start: s.pos, End: end, Color: s.penColor})
		}
		s.pos = end
		return ipc.Response{Kind: ipc.ResponseAck}
	case ipc.RequestTurn:
		s.heading += req.Angle
		return ipc.Response{Kind: ipc.ResponseAck}
	case ipc.RequestPen:
		if req.PenDown != nil {
			s.penDown = *req.PenDown
		}
		if req.PenColor != "" {
			s.penColor = req.PenColor
		}
		return ipc.Response{Kind: ipc.ResponseAck}
	case ipc.RequestClear:
		s.segments = nil
		return ipc.Response{Kind: ipc.ResponseAck}
	case ipc.RequestPollState:
		state := s.stateLocked()
		return ipc.Response{Kind: ipc.ResponseState, State: &state}
	case ipc.RequestQuit:
		return ipc.Response{Kind: ipc.ResponseAck}
	default:
		return ipc.Response{Kind: ipc.ResponseError, Error: fmt.Sprintf("unknown request kind %q", req.Kind)}
	}
}

// State returns a snapshot of the scene.
func (s *Scene) State() ipc.SceneState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Scene) stateLocked() ipc.SceneState {
	segments := make([]ipc.Segment, len(s.segments))
	copy(segments, s.segments)
	return ipc.SceneState{
		Position: s.pos,
		Heading:  s.heading,
		PenDown:  s.penDown,
		PenColor: s.penColor,
		Segments: segments,
	}
}
