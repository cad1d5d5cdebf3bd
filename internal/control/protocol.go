// Package control turns browser pointer events into joystick updates and robot commands.
package control

// Box is the joystick base bounding box reported by the client UI.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Touch is one touch point in client coordinates.
type Touch struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Message is a control websocket payload.
type Message struct {
	T       string  `json:"t"`
	Src     string  `json:"src,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	Touches []Touch `json:"touches,omitempty"`
	Box     *Box    `json:"box,omitempty"`
	Dir     string  `json:"dir,omitempty"`
	Phase   string  `json:"phase,omitempty"`
	Size    float64 `json:"size,omitempty"`
	Enabled *bool   `json:"enabled,omitempty"`
}

// StickMessage reports the visual stick offset back to the client.
type StickMessage struct {
	T        string  `json:"t"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Dragging bool    `json:"dragging"`
	Size     float64 `json:"size"`
}

// Pointer sources.
const (
	SrcMouse = "mouse"
	SrcTouch = "touch"
)

// Rotation directions and phases.
const (
	DirCCW       = "ccw"
	DirCW        = "cw"
	PhasePress   = "press"
	PhaseRelease = "release"
	PhaseLeave   = "leave"
)
