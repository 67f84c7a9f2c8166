package protocol

import (
	"fmt"
	"math"
)

// GameOpcode identifies a sub-command inside a Game command.
type GameOpcode uint8

const (
	GameSetGameSpeed          GameOpcode = 0x01
	GameInventory             GameOpcode = 0x02
	GameUpgradeTown           GameOpcode = 0x03
	GameQuickBuild            GameOpcode = 0x04
	GameAlliedVictory         GameOpcode = 0x05
	GameCheat                 GameOpcode = 0x06
	GameSharedLos             GameOpcode = 0x07
	GameSpies                 GameOpcode = 0x0A
	GameSetStrategicNumber    GameOpcode = 0x0B
	GameUnknown0C             GameOpcode = 0x0C
	GameAddFarmReseedQueue    GameOpcode = 0x0D
	GameRemoveFarmReseedQueue GameOpcode = 0x0E
	GameFarmReseedAutoQueue   GameOpcode = 0x10
)

var gameOpcodeNames = map[GameOpcode]string{
	GameSetGameSpeed:          "SetGameSpeed",
	GameInventory:             "Inventory",
	GameUpgradeTown:           "UpgradeTown",
	GameQuickBuild:            "QuickBuild",
	GameAlliedVictory:         "AlliedVictory",
	GameCheat:                 "Cheat",
	GameSharedLos:             "SharedLos",
	GameSpies:                 "Spies",
	GameSetStrategicNumber:    "SetStrategicNumber",
	GameUnknown0C:             "Unknown0C",
	GameAddFarmReseedQueue:    "AddFarmReseedQueue",
	GameRemoveFarmReseedQueue: "RemoveFarmReseedQueue",
	GameFarmReseedAutoQueue:   "FarmReseedAutoQueue",
}

// String returns the sub-command name.
func (op GameOpcode) String() string {
	if name, ok := gameOpcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("GameOpcode(0x%02X)", uint8(op))
}

// gameVars are the four generic slots every Game payload carries.
//
//	┌─────┬──────────┬──────────┬─────────┬───────────┬───────────┐
//	│ Sub │ var1     │ var2     │ Padding │ var3      │ var4      │
//	│ u8  │ i16 LE   │ i16 LE   │ 2 bytes │ f32 LE    │ u32 LE    │
//	└─────┴──────────┴──────────┴─────────┴───────────┴───────────┘
//
// var1 is always the issuing player.
type gameVars struct {
	var1 int16
	var2 int16
	var3 float32
	var4 uint32
}

// GameCommand is one Game sub-command. The set of implementations is closed.
type GameCommand interface {
	GameOpcode() GameOpcode
	vars() gameVars
}

// Game wraps a sub-command affecting the game as a whole: speed, cheats,
// diplomacy and similar.
type Game struct {
	Command GameCommand
}

func (*Game) Opcode() Opcode { return OpGame }

// SetGameSpeed changes the game speed.
type SetGameSpeed struct {
	Player PlayerID
	Speed  float32
}

func (*SetGameSpeed) GameOpcode() GameOpcode { return GameSetGameSpeed }
func (c *SetGameSpeed) vars() gameVars {
	return gameVars{var1: int16(c.Player), var3: c.Speed}
}

// Inventory sets a player attribute. The game never issues it.
type Inventory struct {
	Player    PlayerID
	Attribute int16
	Amount    float32
}

func (*Inventory) GameOpcode() GameOpcode { return GameInventory }
func (c *Inventory) vars() gameVars {
	return gameVars{var1: int16(c.Player), var2: c.Attribute, var3: c.Amount}
}

// UpgradeTown is not implemented by the game.
type UpgradeTown struct {
	Player PlayerID
}

func (*UpgradeTown) GameOpcode() GameOpcode { return GameUpgradeTown }
func (c *UpgradeTown) vars() gameVars     { return gameVars{var1: int16(c.Player)} }

// QuickBuild toggles the quick build cheat.
type QuickBuild struct {
	Player PlayerID
}

func (*QuickBuild) GameOpcode() GameOpcode { return GameQuickBuild }
func (c *QuickBuild) vars() gameVars     { return gameVars{var1: int16(c.Player)} }

// AlliedVictory sets a player's allied victory flag.
type AlliedVictory struct {
	Player PlayerID
	Status bool
}

func (*AlliedVictory) GameOpcode() GameOpcode { return GameAlliedVictory }
func (c *AlliedVictory) vars() gameVars {
	v := gameVars{var1: int16(c.Player)}
	if c.Status {
		v.var2 = 1
	}
	return v
}

// Cheat activates a cheat code.
type Cheat struct {
	Player PlayerID
	Cheat  int16
}

func (*Cheat) GameOpcode() GameOpcode { return GameCheat }
func (c *Cheat) vars() gameVars {
	return gameVars{var1: int16(c.Player), var2: c.Cheat}
}

// SharedLos is not implemented by the game.
type SharedLos struct {
	Player PlayerID
}

func (*SharedLos) GameOpcode() GameOpcode { return GameSharedLos }
func (c *SharedLos) vars() gameVars     { return gameVars{var1: int16(c.Player)} }

// Spies researches the Spies technology for a player.
type Spies struct {
	Player PlayerID
}

func (*Spies) GameOpcode() GameOpcode { return GameSpies }
func (c *Spies) vars() gameVars     { return gameVars{var1: int16(c.Player)} }

// SetStrategicNumber changes an AI strategic number.
type SetStrategicNumber struct {
	Player PlayerID
	Number int16
	Value  int32
}

func (*SetStrategicNumber) GameOpcode() GameOpcode { return GameSetStrategicNumber }
func (c *SetStrategicNumber) vars() gameVars {
	return gameVars{var1: int16(c.Player), var2: c.Number, var4: uint32(c.Value)}
}

// Unknown0C appears to be unused.
type Unknown0C struct {
	Player PlayerID
}

func (*Unknown0C) GameOpcode() GameOpcode { return GameUnknown0C }
func (c *Unknown0C) vars() gameVars     { return gameVars{var1: int16(c.Player)} }

// AddFarmReseedQueue buys farm reseeds.
type AddFarmReseedQueue struct {
	Player PlayerID
	Amount int16
}

func (*AddFarmReseedQueue) GameOpcode() GameOpcode { return GameAddFarmReseedQueue }
func (c *AddFarmReseedQueue) vars() gameVars {
	return gameVars{var1: int16(c.Player), var2: c.Amount}
}

// RemoveFarmReseedQueue cancels farm reseeds.
type RemoveFarmReseedQueue struct {
	Player PlayerID
	Amount int16
}

func (*RemoveFarmReseedQueue) GameOpcode() GameOpcode { return GameRemoveFarmReseedQueue }
func (c *RemoveFarmReseedQueue) vars() gameVars {
	return gameVars{var1: int16(c.Player), var2: c.Amount}
}

// FarmReseedAutoQueue toggles automatic farm reseeding.
type FarmReseedAutoQueue struct {
	Player PlayerID
}

func (*FarmReseedAutoQueue) GameOpcode() GameOpcode { return GameFarmReseedAutoQueue }
func (c *FarmReseedAutoQueue) vars() gameVars     { return gameVars{var1: int16(c.Player)} }

func decodeGame(d *Decoder) (Command, error) {
	sub, err := d.ReadUint8("game command")
	if err != nil {
		return nil, err
	}
	var v gameVars
	if v.var1, err = d.ReadInt16("var1"); err != nil {
		return nil, err
	}
	if v.var2, err = d.ReadInt16("var2"); err != nil {
		return nil, err
	}
	if err = d.Skip(2); err != nil {
		return nil, err
	}
	if v.var3, err = d.ReadFloat32("var3"); err != nil {
		return nil, err
	}
	if v.var4, err = d.ReadUint32("var4"); err != nil {
		return nil, err
	}

	op := GameOpcode(sub)
	if _, ok := gameOpcodeNames[op]; !ok {
		return nil, d.errorf(CodeUnsupportedGameCommand, "game command",
			fmt.Errorf("%w: 0x%02X", ErrUnsupportedGameCommand, sub))
	}
	player, err := d.playerFromInt16("player", v.var1)
	if err != nil {
		return nil, err
	}

	var gc GameCommand
	switch op {
	case GameSetGameSpeed:
		gc = &SetGameSpeed{Player: player, Speed: v.var3}
	case GameInventory:
		gc = &Inventory{Player: player, Attribute: v.var2, Amount: v.var3}
	case GameUpgradeTown:
		gc = &UpgradeTown{Player: player}
	case GameQuickBuild:
		gc = &QuickBuild{Player: player}
	case GameAlliedVictory:
		gc = &AlliedVictory{Player: player, Status: v.var2 != 0}
	case GameCheat:
		gc = &Cheat{Player: player, Cheat: v.var2}
	case GameSharedLos:
		gc = &SharedLos{Player: player}
	case GameSpies:
		gc = &Spies{Player: player}
	case GameSetStrategicNumber:
		if v.var4 > math.MaxInt32 {
			return nil, d.narrowingError("strategic number value", int64(v.var4))
		}
		gc = &SetStrategicNumber{Player: player, Number: v.var2, Value: int32(v.var4)}
	case GameUnknown0C:
		gc = &Unknown0C{Player: player}
	case GameAddFarmReseedQueue:
		gc = &AddFarmReseedQueue{Player: player, Amount: v.var2}
	case GameRemoveFarmReseedQueue:
		gc = &RemoveFarmReseedQueue{Player: player, Amount: v.var2}
	case GameFarmReseedAutoQueue:
		gc = &FarmReseedAutoQueue{Player: player}
	}
	return &Game{Command: gc}, nil
}

func (c *Game) encode(e *Encoder) error {
	if c.Command == nil {
		op := OpGame
		return &EncodeError{Opcode: &op, Field: "game command", Err: ErrUnsupportedGameCommand}
	}
	if sn, ok := c.Command.(*SetStrategicNumber); ok && sn.Value < 0 {
		return encodeRangeError(OpGame, "strategic number value", int(sn.Value))
	}
	v := c.Command.vars()
	e.WriteUint8(uint8(c.Command.GameOpcode()))
	e.WriteInt16(v.var1)
	e.WriteInt16(v.var2)
	e.WritePadding(2)
	e.WriteFloat32(v.var3)
	e.WriteUint32(v.var4)
	return nil
}
