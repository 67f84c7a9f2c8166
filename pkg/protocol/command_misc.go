package protocol

// Create spawns an object. Only cheats and the scenario editor issue it.
type Create struct {
	UnitType UnitTypeID
	Player   PlayerID
	Location Location3
}

func (*Create) Opcode() Opcode { return OpCreate }

func decodeCreate(d *Decoder) (Command, error) {
	c := &Create{}
	var err error
	if err = d.Skip(1); err != nil {
		return nil, err
	}
	if c.UnitType, err = d.ReadUnitTypeID("unit type"); err != nil {
		return nil, err
	}
	if c.Player, err = d.ReadPlayerID("player"); err != nil {
		return nil, err
	}
	if err = d.Skip(1); err != nil {
		return nil, err
	}
	if c.Location, err = d.ReadLocation3("location"); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Create) encode(e *Encoder) error {
	e.WritePadding(1)
	e.WriteUint16(uint16(c.UnitType))
	e.WriteUint8(uint8(c.Player))
	e.WritePadding(1)
	e.WriteLocation3(c.Location)
	return nil
}

// Resign records a player resigning or dropping out.
type Resign struct {
	Player     PlayerID
	CommPlayer PlayerID
	Dropped    bool
}

func (*Resign) Opcode() Opcode { return OpResign }

func decodeResign(d *Decoder) (Command, error) {
	c := &Resign{}
	var err error
	if c.Player, err = d.ReadPlayerID("player"); err != nil {
		return nil, err
	}
	if c.CommPlayer, err = d.ReadPlayerID("comm player"); err != nil {
		return nil, err
	}
	if c.Dropped, err = d.ReadBool("dropped"); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Resign) encode(e *Encoder) error {
	e.WriteUint8(uint8(c.Player))
	e.WriteUint8(uint8(c.CommPlayer))
	e.WriteBool(c.Dropped)
	return nil
}

// UserPatchAI is an AI command added by UserPatch. The number of
// parameters follows from the frame length.
type UserPatchAI struct {
	Action uint8
	Player PlayerID
	Params []uint32
}

func (*UserPatchAI) Opcode() Opcode { return OpUserPatchAI }

func decodeUserPatchAI(d *Decoder) (Command, error) {
	c := &UserPatchAI{}
	var err error
	if c.Action, err = d.ReadUint8("action"); err != nil {
		return nil, err
	}
	if c.Player, err = d.ReadPlayerID("player"); err != nil {
		return nil, err
	}
	if err = d.Skip(1); err != nil {
		return nil, err
	}
	n := d.Remaining() / 4
	if n > MaxUserPatchParams {
		return nil, d.narrowingError("param count", int64(n))
	}
	c.Params = make([]uint32, n)
	for i := range c.Params {
		if c.Params[i], err = d.ReadUint32("param"); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *UserPatchAI) encode(e *Encoder) error {
	if len(c.Params) > MaxUserPatchParams {
		return encodeRangeError(OpUserPatchAI, "params", len(c.Params))
	}
	e.WriteUint8(c.Action)
	e.WriteUint8(uint8(c.Player))
	e.WritePadding(1)
	for _, p := range c.Params {
		e.WriteUint32(p)
	}
	return nil
}

// Flare shows a flare to the selected recipients.
type Flare struct {
	Player     PlayerID
	CommPlayer PlayerID
	Recipients [FlareRecipients]bool
	Location   Location2
}

func (*Flare) Opcode() Opcode { return OpFlare }

const flareGuard = NoneU32

func decodeFlare(d *Decoder) (Command, error) {
	c := &Flare{}
	var err error
	if err = d.Skip(3); err != nil {
		return nil, err
	}
	guard, err := d.ReadUint32("guard")
	if err != nil {
		return nil, err
	}
	if guard != flareGuard {
		return nil, d.invariantError("guard", guard, flareGuard)
	}
	for i := range c.Recipients {
		if c.Recipients[i], err = d.ReadBool("recipient"); err != nil {
			return nil, err
		}
	}
	if err = d.Skip(3); err != nil {
		return nil, err
	}
	if c.Location, err = d.ReadLocation2("location"); err != nil {
		return nil, err
	}
	if c.Player, err = d.ReadPlayerID("player"); err != nil {
		return nil, err
	}
	if c.CommPlayer, err = d.ReadPlayerID("comm player"); err != nil {
		return nil, err
	}
	if err = d.Skip(2); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Flare) encode(e *Encoder) error {
	e.WritePadding(3)
	e.WriteUint32(flareGuard)
	for _, r := range c.Recipients {
		e.WriteBool(r)
	}
	e.WritePadding(3)
	e.WriteLocation2(c.Location)
	e.WriteUint8(uint8(c.Player))
	e.WriteUint8(uint8(c.CommPlayer))
	e.WritePadding(2)
	return nil
}

// Unknown7F is an undocumented command carrying an object and a value.
type Unknown7F struct {
	Object ObjectID
	Value  uint32
}

func (*Unknown7F) Opcode() Opcode { return OpUnknown7F }

func decodeUnknown7F(d *Decoder) (Command, error) {
	c := &Unknown7F{}
	var err error
	if err = d.Skip(3); err != nil {
		return nil, err
	}
	if c.Object, err = d.ReadObjectID("object"); err != nil {
		return nil, err
	}
	if c.Value, err = d.ReadUint32("value"); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Unknown7F) encode(e *Encoder) error {
	e.WritePadding(3)
	e.WriteObjectID(c.Object)
	e.WriteUint32(c.Value)
	return nil
}
