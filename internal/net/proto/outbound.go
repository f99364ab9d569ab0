package proto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Direction is a movement request understood by the server.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionStop  Direction = "stop"
)

// ParseDirection accepts the five wire directions, case-insensitively.
func ParseDirection(raw string) (Direction, bool) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(raw))); d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight, DirectionStop:
		return d, true
	default:
		return "", false
	}
}

// Shape selects how move messages are framed. Servers in the wild accept
// one or the other, never both.
type Shape string

const (
	// ShapeBare sends the direction itself as the text frame.
	ShapeBare Shape = "bare"
	// ShapeSignal wraps the direction in a {type:"move"} signal whose
	// content is a JSON string carrying the player id.
	ShapeSignal Shape = "signal"
)

func ParseShape(raw string) (Shape, bool) {
	switch s := Shape(strings.ToLower(strings.TrimSpace(raw))); s {
	case ShapeBare, ShapeSignal:
		return s, true
	default:
		return "", false
	}
}

// Outbound message types.
const (
	TypeMove = "move"
	// TypeCustomize shares its name with the inbound updatePlayer
	// instruction; the server tells them apart by direction of travel.
	TypeCustomize = TypeUpdatePlayer
)

// ErrNoPlayerID is returned when a signal-shaped move is requested before
// the local player id is known.
var ErrNoPlayerID = errors.New("local player id not known yet")

// MoveContent is the JSON document carried as a string in Signal.Content.
type MoveContent struct {
	ID        string    `json:"id"`
	Direction Direction `json:"direction" jsonschema:"enum=up,enum=down,enum=left,enum=right,enum=stop"`
}

// Signal is the structured outbound envelope.
type Signal struct {
	Type    string `json:"type" jsonschema:"enum=move"`
	Content string `json:"content"`
}

// Customization updates the local player's name and color.
type Customization struct {
	Type  string `json:"type" jsonschema:"enum=updatePlayer"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// EncodeMove frames a direction in the requested shape.
func EncodeMove(shape Shape, playerID string, dir Direction) ([]byte, error) {
	if _, ok := ParseDirection(string(dir)); !ok {
		return nil, fmt.Errorf("encode move: invalid direction %q", dir)
	}
	switch shape {
	case ShapeBare, "":
		return []byte(dir), nil
	case ShapeSignal:
		if playerID == "" {
			return nil, ErrNoPlayerID
		}
		content, err := json.Marshal(MoveContent{ID: playerID, Direction: dir})
		if err != nil {
			return nil, fmt.Errorf("encode move content: %w", err)
		}
		return json.Marshal(Signal{Type: TypeMove, Content: string(content)})
	default:
		return nil, fmt.Errorf("encode move: unknown shape %q", shape)
	}
}

// EncodeCustomization frames a name/color update.
func EncodeCustomization(name, color string) ([]byte, error) {
	return json.Marshal(Customization{Type: TypeCustomize, Name: name, Color: color})
}
