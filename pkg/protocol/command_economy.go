package protocol

// AddResource grants resources to a player. Only scenario triggers and
// cheats issue it.
type AddResource struct {
	Player   PlayerID
	Resource uint8
	Amount   float32
}

func (*AddResource) Opcode() Opcode { return OpAddResource }

func decodeAddResource(d *Decoder) (Command, error) {
	c := &AddResource{}
	var err error
	if c.Player, err = d.ReadPlayerID("player"); err != nil {
		return nil, err
	}
	if c.Resource, err = d.ReadUint8("resource"); err != nil {
		return nil, err
	}
	if err = d.Skip(1); err != nil {
		return nil, err
	}
	if c.Amount, err = d.ReadFloat32("amount"); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *AddResource) encode(e *Encoder) error {
	e.WriteUint8(uint8(c.Player))
	e.WriteUint8(c.Resource)
	e.WritePadding(1)
	e.WriteFloat32(c.Amount)
	return nil
}

// Make trains a unit at a building.
type Make struct {
	Building ObjectID
	Player   PlayerID
	UnitType UnitTypeID
	Target   *ObjectID
}

func (*Make) Opcode() Opcode { return OpMake }

func decodeMake(d *Decoder) (Command, error) {
	c := &Make{}
	var err error
	if err = d.Skip(3); err != nil {
		return nil, err
	}
	if c.Building, err = d.ReadObjectID("building"); err != nil {
		return nil, err
	}
	if c.Player, err = d.ReadPlayerID("player"); err != nil {
		return nil, err
	}
	if err = d.Skip(1); err != nil {
		return nil, err
	}
	if c.UnitType, err = d.ReadUnitTypeID("unit type"); err != nil {
		return nil, err
	}
	if c.Target, err = d.ReadOptObjectID("target"); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Make) encode(e *Encoder) error {
	e.WritePadding(3)
	e.WriteObjectID(c.Building)
	e.WriteUint8(uint8(c.Player))
	e.WritePadding(1)
	e.WriteUint16(uint16(c.UnitType))
	e.WriteOptObjectID(c.Target)
	return nil
}

// Research starts a technology at a building.
type Research struct {
	Building ObjectID
	Player   PlayerID
	Tech     TechID
	Target   *ObjectID
}

func (*Research) Opcode() Opcode { return OpResearch }

func decodeResearch(d *Decoder) (Command, error) {
	c := &Research{}
	var err error
	if err = d.Skip(3); err != nil {
		return nil, err
	}
	if c.Building, err = d.ReadObjectID("building"); err != nil {
		return nil, err
	}
	if c.Player, err = d.ReadPlayerID("player"); err != nil {
		return nil, err
	}
	if err = d.Skip(1); err != nil {
		return nil, err
	}
	if c.Tech, err = d.ReadTechID("tech"); err != nil {
		return nil, err
	}
	if c.Target, err = d.ReadOptObjectID("target"); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Research) encode(e *Encoder) error {
	e.WritePadding(3)
	e.WriteObjectID(c.Building)
	e.WriteUint8(uint8(c.Player))
	e.WritePadding(1)
	e.WriteUint16(uint16(c.Tech))
	e.WriteOptObjectID(c.Target)
	return nil
}

// CancelBuild deletes a building or cancels an unfinished foundation.
type CancelBuild struct {
	Building ObjectID
	Player   PlayerID
}

func (*CancelBuild) Opcode() Opcode { return OpCancelBuild }

func decodeCancelBuild(d *Decoder) (Command, error) {
	c := &CancelBuild{}
	var err error
	if err = d.Skip(3); err != nil {
		return nil, err
	}
	if c.Building, err = d.ReadObjectID("building"); err != nil {
		return nil, err
	}
	player, err := d.ReadInt32("player")
	if err != nil {
		return nil, err
	}
	if c.Player, err = d.playerFromInt32("player", player); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CancelBuild) encode(e *Encoder) error {
	e.WritePadding(3)
	e.WriteObjectID(c.Building)
	e.WriteUint32(uint32(c.Player))
	return nil
}

// Queue adds units to a building's production queue.
type Queue struct {
	Building ObjectID
	UnitType UnitTypeID
	Amount   uint16
}

func (*Queue) Opcode() Opcode { return OpQueue }

func decodeQueue(d *Decoder) (Command, error) {
	c := &Queue{}
	var err error
	if err = d.Skip(3); err != nil {
		return nil, err
	}
	if c.Building, err = d.ReadObjectID("building"); err != nil {
		return nil, err
	}
	if c.UnitType, err = d.ReadUnitTypeID("unit type"); err != nil {
		return nil, err
	}
	if c.Amount, err = d.ReadUint16("amount"); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Queue) encode(e *Encoder) error {
	e.WritePadding(3)
	e.WriteObjectID(c.Building)
	e.WriteUint16(uint16(c.UnitType))
	e.WriteUint16(c.Amount)
	return nil
}

// MarketTrade is the shared shape of SellResource and BuyResource.
// Amount is in hundreds.
type MarketTrade struct {
	Player   PlayerID
	Resource uint8
	Amount   int8
	Market   ObjectID
}

func decodeMarketTrade(d *Decoder) (MarketTrade, error) {
	var t MarketTrade
	var err error
	if t.Player, err = d.ReadPlayerID("player"); err != nil {
		return t, err
	}
	if t.Resource, err = d.ReadUint8("resource"); err != nil {
		return t, err
	}
	if t.Amount, err = d.ReadInt8("amount"); err != nil {
		return t, err
	}
	if t.Market, err = d.ReadObjectID("market"); err != nil {
		return t, err
	}
	return t, nil
}

func (t MarketTrade) encode(e *Encoder) error {
	e.WriteUint8(uint8(t.Player))
	e.WriteUint8(t.Resource)
	e.WriteInt8(t.Amount)
	e.WriteObjectID(t.Market)
	return nil
}

// SellResource sells resources at a market.
type SellResource struct {
	MarketTrade
}

func (*SellResource) Opcode() Opcode { return OpSellResource }

func decodeSellResource(d *Decoder) (Command, error) {
	t, err := decodeMarketTrade(d)
	if err != nil {
		return nil, err
	}
	return &SellResource{t}, nil
}

// BuyResource buys resources at a market.
type BuyResource struct {
	MarketTrade
}

func (*BuyResource) Opcode() Opcode { return OpBuyResource }

func decodeBuyResource(d *Decoder) (Command, error) {
	t, err := decodeMarketTrade(d)
	if err != nil {
		return nil, err
	}
	return &BuyResource{t}, nil
}

// BackToWork sends the villagers garrisoned in a building back to work.
type BackToWork struct {
	Building ObjectID
}

func (*BackToWork) Opcode() Opcode { return OpBackToWork }

func decodeBackToWork(d *Decoder) (Command, error) {
	if err := d.Skip(3); err != nil {
		return nil, err
	}
	building, err := d.ReadObjectID("building")
	if err != nil {
		return nil, err
	}
	return &BackToWork{Building: building}, nil
}

func (c *BackToWork) encode(e *Encoder) error {
	e.WritePadding(3)
	e.WriteObjectID(c.Building)
	return nil
}
