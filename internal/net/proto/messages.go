package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"territory/client/internal/mirror"
)

// Render instruction types pushed by the server.
const (
	TypeUpdatePlayer     = "updatePlayer"
	TypeCaptureTerritory = "captureTerritory"
	TypeRemovePlayer     = "removePlayer"
	TypeNewPlayer        = "newPlayer"
)

var (
	// ErrMalformed marks frames that cannot be decoded into a usable
	// instruction.
	ErrMalformed = errors.New("malformed instruction")
	// ErrUnknownType marks well-formed frames with an unrecognised type.
	ErrUnknownType = errors.New("unknown instruction type")
)

// PlayerPayload carries the player state attached to every instruction.
// Only the fields relevant to the instruction type are populated.
type PlayerPayload struct {
	ID               string         `json:"id" msgpack:"id"`
	StartingPosition mirror.Point   `json:"startingPosition" msgpack:"startingPosition"`
	Name             string         `json:"name,omitempty" msgpack:"name"`
	Color            string         `json:"color,omitempty" msgpack:"color"`
	X                float64        `json:"x" msgpack:"x"`
	Y                float64        `json:"y" msgpack:"y"`
	VelocityX        float64        `json:"velocityX" msgpack:"velocityX"`
	VelocityY        float64        `json:"velocityY" msgpack:"velocityY"`
	LandCapture      [][]bool       `json:"landCapture" msgpack:"landCapture"`
	PlayerTrail      []mirror.Point `json:"playerTrail" msgpack:"playerTrail"`
	StartingLand     [][]bool       `json:"startingLand" msgpack:"startingLand"`
	IsAlive          bool           `json:"isAlive" msgpack:"isAlive"`
}

// Instruction is one render instruction.
type Instruction struct {
	Type    string        `json:"type" msgpack:"type" jsonschema:"enum=updatePlayer,enum=captureTerritory,enum=removePlayer,enum=newPlayer"`
	Payload PlayerPayload `json:"payload" msgpack:"payload"`
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// required lists the payload fields an instruction cannot be applied
// without, beyond the id every instruction needs.
var required = map[string][]string{
	TypeUpdatePlayer:     {"x", "y", "landCapture"},
	TypeCaptureTerritory: {"landCapture"},
	TypeRemovePlayer:     nil,
	TypeNewPlayer:        nil,
}

// DecodeInstruction decodes one websocket frame. Text frames carry JSON,
// binary frames carry msgpack with the same field names. The returned error
// wraps ErrMalformed or ErrUnknownType.
func DecodeInstruction(messageType int, data []byte) (Instruction, error) {
	switch messageType {
	case websocket.TextMessage:
		return decodeJSON(data)
	case websocket.BinaryMessage:
		return decodeMsgpack(data)
	default:
		return Instruction{}, fmt.Errorf("%w: unsupported frame type %d", ErrMalformed, messageType)
	}
}

func decodeMsgpack(data []byte) (Instruction, error) {
	var generic map[string]any
	if err := msgpack.Unmarshal(data, &generic); err != nil {
		return Instruction{}, fmt.Errorf("%w: msgpack: %v", ErrMalformed, err)
	}
	// Re-encode so both frame kinds share one validation path.
	normalized, err := json.Marshal(generic)
	if err != nil {
		return Instruction{}, fmt.Errorf("%w: msgpack: %v", ErrMalformed, err)
	}
	return decodeJSON(normalized)
}

func decodeJSON(data []byte) (Instruction, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Instruction{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return Instruction{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	fields, ok := required[env.Type]
	if !ok {
		return Instruction{Type: env.Type}, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if isNull(env.Payload) {
		return Instruction{Type: env.Type}, fmt.Errorf("%w: %s without payload", ErrMalformed, env.Type)
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(env.Payload, &present); err != nil {
		return Instruction{Type: env.Type}, fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.Type, err)
	}
	for _, name := range fields {
		if isNull(present[name]) {
			return Instruction{Type: env.Type}, fmt.Errorf("%w: %s missing %s", ErrMalformed, env.Type, name)
		}
	}

	inst := Instruction{Type: env.Type}
	if err := json.Unmarshal(env.Payload, &inst.Payload); err != nil {
		return inst, fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.Type, err)
	}
	if inst.Payload.ID == "" {
		return inst, fmt.Errorf("%w: %s missing id", ErrMalformed, env.Type)
	}
	return inst, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// EncodeInstruction renders an instruction as a JSON text frame. The client
// never sends these; tests and tooling use it to script a server.
func EncodeInstruction(inst Instruction) ([]byte, error) {
	return json.Marshal(inst)
}

// EncodeInstructionMsgpack renders an instruction as a msgpack binary frame.
func EncodeInstructionMsgpack(inst Instruction) ([]byte, error) {
	return msgpack.Marshal(&inst)
}
