package protocol

import "fmt"

// Opcode identifies a command inside a command frame.
type Opcode uint8

const (
	OpOrder          Opcode = 0x00
	OpStop           Opcode = 0x01
	OpWork           Opcode = 0x02
	OpMove           Opcode = 0x03
	OpCreate         Opcode = 0x04
	OpAddResource    Opcode = 0x05
	OpAIOrder        Opcode = 0x0A
	OpResign         Opcode = 0x0B
	OpGroupWaypoint  Opcode = 0x10
	OpUnitAIState    Opcode = 0x12
	OpGuard          Opcode = 0x13
	OpFollow         Opcode = 0x14
	OpPatrol         Opcode = 0x15
	OpFormFormation  Opcode = 0x17
	OpUserPatchAI    Opcode = 0x35
	OpMake           Opcode = 0x64
	OpResearch       Opcode = 0x65
	OpBuild          Opcode = 0x66
	OpGame           Opcode = 0x67
	OpBuildWall      Opcode = 0x69
	OpCancelBuild    Opcode = 0x6A
	OpAttackGround   Opcode = 0x6B
	OpRepair         Opcode = 0x6E
	OpUngarrison     Opcode = 0x6F
	OpFlare          Opcode = 0x73
	OpUnitOrder      Opcode = 0x75
	OpQueue          Opcode = 0x77
	OpSetGatherPoint Opcode = 0x78
	OpSellResource   Opcode = 0x7A
	OpBuyResource    Opcode = 0x7B
	OpUnknown7F      Opcode = 0x7F
	OpBackToWork     Opcode = 0x80
)

var opcodeNames = map[Opcode]string{
	OpOrder:          "Order",
	OpStop:           "Stop",
	OpWork:           "Work",
	OpMove:           "Move",
	OpCreate:         "Create",
	OpAddResource:    "AddResource",
	OpAIOrder:        "AIOrder",
	OpResign:         "Resign",
	OpGroupWaypoint:  "GroupWaypoint",
	OpUnitAIState:    "UnitAIState",
	OpGuard:          "Guard",
	OpFollow:         "Follow",
	OpPatrol:         "Patrol",
	OpFormFormation:  "FormFormation",
	OpUserPatchAI:    "UserPatchAI",
	OpMake:           "Make",
	OpResearch:       "Research",
	OpBuild:          "Build",
	OpGame:           "Game",
	OpBuildWall:      "BuildWall",
	OpCancelBuild:    "CancelBuild",
	OpAttackGround:   "AttackGround",
	OpRepair:         "Repair",
	OpUngarrison:     "Ungarrison",
	OpFlare:          "Flare",
	OpUnitOrder:      "UnitOrder",
	OpQueue:          "Queue",
	OpSetGatherPoint: "SetGatherPoint",
	OpSellResource:   "SellResource",
	OpBuyResource:    "BuyResource",
	OpUnknown7F:      "Unknown7F",
	OpBackToWork:     "BackToWork",
}

// String returns the command name, or the hex opcode if it is not modeled.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(0x%02X)", uint8(op))
}

// Supported reports whether op has a command type.
func (op Opcode) Supported() bool {
	_, ok := opcodeNames[op]
	return ok
}

// ParseOpcode returns the opcode with the given name.
func ParseOpcode(name string) (Opcode, bool) {
	for op, n := range opcodeNames {
		if n == name {
			return op, true
		}
	}
	return 0, false
}

// Opcodes returns every modeled opcode in ascending order.
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, len(opcodeNames))
	for op := 0; op <= 0xFF; op++ {
		if Opcode(op).Supported() {
			ops = append(ops, Opcode(op))
		}
	}
	return ops
}

// Command is one player command. The set of implementations is closed;
// every type in this package that satisfies it is listed in the opcode table.
type Command interface {
	// Opcode returns the wire opcode of the command.
	Opcode() Opcode

	// encode appends the fields that follow the opcode byte.
	encode(e *Encoder) error
}

// Selector is implemented by commands that carry an object list.
type Selector interface {
	Command
	Selection() ObjectList
}

// DecodeCommand decodes a command from the bytes of one frame body,
// starting with the opcode byte.
func DecodeCommand(data []byte) (Command, error) {
	return DecodeCommandFrom(NewDecoder(data))
}

// DecodeCommandFrom decodes a command from a decoder bounded to one frame
// body. Bytes the command does not model are left unread.
func DecodeCommandFrom(d *Decoder) (Command, error) {
	b, err := d.ReadUint8("opcode")
	if err != nil {
		return nil, err
	}
	op := Opcode(b)
	d.withOpcode(op)

	switch op {
	case OpOrder:
		return decodeOrder(d)
	case OpStop:
		return decodeStop(d)
	case OpWork:
		return decodeWork(d)
	case OpMove:
		return decodeMove(d)
	case OpCreate:
		return decodeCreate(d)
	case OpAddResource:
		return decodeAddResource(d)
	case OpAIOrder:
		return decodeAIOrder(d)
	case OpResign:
		return decodeResign(d)
	case OpGroupWaypoint:
		return decodeGroupWaypoint(d)
	case OpUnitAIState:
		return decodeUnitAIState(d)
	case OpGuard:
		return decodeGuard(d)
	case OpFollow:
		return decodeFollow(d)
	case OpPatrol:
		return decodePatrol(d)
	case OpFormFormation:
		return decodeFormFormation(d)
	case OpUserPatchAI:
		return decodeUserPatchAI(d)
	case OpMake:
		return decodeMake(d)
	case OpResearch:
		return decodeResearch(d)
	case OpBuild:
		return decodeBuild(d)
	case OpGame:
		return decodeGame(d)
	case OpBuildWall:
		return decodeBuildWall(d)
	case OpCancelBuild:
		return decodeCancelBuild(d)
	case OpAttackGround:
		return decodeAttackGround(d)
	case OpRepair:
		return decodeRepair(d)
	case OpUngarrison:
		return decodeUngarrison(d)
	case OpFlare:
		return decodeFlare(d)
	case OpUnitOrder:
		return decodeUnitOrder(d)
	case OpQueue:
		return decodeQueue(d)
	case OpSetGatherPoint:
		return decodeSetGatherPoint(d)
	case OpSellResource:
		return decodeSellResource(d)
	case OpBuyResource:
		return decodeBuyResource(d)
	case OpUnknown7F:
		return decodeUnknown7F(d)
	case OpBackToWork:
		return decodeBackToWork(d)
	default:
		return nil, d.errorf(CodeUnsupportedOpcode, "opcode", fmt.Errorf("%w: 0x%02X", ErrUnsupportedOpcode, b))
	}
}

// EncodeCommand encodes a command, opcode byte first. The result is the
// body of a command frame; its length is the frame's declared length.
func EncodeCommand(c Command) ([]byte, error) {
	e := NewEncoderWithCap(64)
	if err := EncodeCommandTo(e, c); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// EncodeCommandTo encodes a command using the provided encoder. On error
// the encoder is left at its previous length.
func EncodeCommandTo(e *Encoder, c Command) error {
	start := e.Len()
	e.WriteUint8(uint8(c.Opcode()))
	if err := c.encode(e); err != nil {
		e.buf = e.buf[:start]
		return err
	}
	return nil
}
