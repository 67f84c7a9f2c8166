package protocol

import "fmt"

// ObjectID identifies a unit, building or other object in the world.
type ObjectID uint32

// PlayerID identifies a player slot. 0 is Gaia.
type PlayerID uint8

// UnitTypeID identifies a unit type in the game data.
type UnitTypeID uint16

// TechID identifies a technology in the game data.
type TechID uint16

// Location2 is a point on the map.
type Location2 struct {
	X, Y float32
}

// Location3 is a point on the map with elevation.
type Location3 struct {
	X, Y, Z float32
}

// Tile is a map tile coordinate.
type Tile struct {
	X, Y uint8
}

func (l Location2) String() string {
	return fmt.Sprintf("(%g, %g)", l.X, l.Y)
}

func (l Location3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", l.X, l.Y, l.Z)
}

func (t Tile) String() string {
	return fmt.Sprintf("[%d, %d]", t.X, t.Y)
}

// ObjectIDPtr returns a pointer to id, for optional fields.
func ObjectIDPtr(id ObjectID) *ObjectID {
	return &id
}

// playerFromInt32 narrows a 32-bit player field.
func (d *Decoder) playerFromInt32(field string, v int32) (PlayerID, error) {
	if v < 0 || v > 0xFF {
		return 0, d.narrowingError(field, int64(v))
	}
	return PlayerID(v), nil
}

// playerFromInt16 narrows a 16-bit player field.
func (d *Decoder) playerFromInt16(field string, v int16) (PlayerID, error) {
	if v < 0 || v > 0xFF {
		return 0, d.narrowingError(field, int64(v))
	}
	return PlayerID(v), nil
}
