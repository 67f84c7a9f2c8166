package protocol

// Order tasks objects to act on a target object or location. The game
// picks the action from the target.
type Order struct {
	Player   PlayerID
	Target   *ObjectID
	Location Location2
	Objects  ObjectList
}

func (*Order) Opcode() Opcode { return OpOrder }

// Selection returns the tasked objects.
func (c *Order) Selection() ObjectList { return c.Objects }

func decodeOrder(d *Decoder) (Command, error) {
	c := &Order{}
	var err error
	if c.Player, err = d.ReadPlayerID("player"); err != nil {
		return nil, err
	}
	if err = d.Skip(2); err != nil {
		return nil, err
	}
	if c.Target, err = d.ReadOptObjectID("target"); err != nil {
		return nil, err
	}
	count, err := d.ReadUint32("object count")
	if err != nil {
		return nil, err
	}
	if c.Location, err = d.ReadLocation2("location"); err != nil {
		return nil, err
	}
	if c.Objects, err = ReadObjectList(d, count); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Order) encode(e *Encoder) error {
	e.WriteUint8(uint8(c.Player))
	e.WritePadding(2)
	e.WriteOptObjectID(c.Target)
	e.WriteUint32(c.Objects.WireCount())
	e.WriteLocation2(c.Location)
	c.Objects.WriteTo(e)
	return nil
}

// Stop halts objects.
type Stop struct {
	Objects ObjectList
}

func (*Stop) Opcode() Opcode { return OpStop }

// Selection returns the stopped objects.
func (c *Stop) Selection() ObjectList { return c.Objects }

func decodeStop(d *Decoder) (Command, error) {
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, err
	}
	objects, err := readByteCountList(d, count)
	if err != nil {
		return nil, err
	}
	return &Stop{Objects: objects}, nil
}

func (c *Stop) encode(e *Encoder) error {
	count, err := byteCount(OpStop, c.Objects)
	if err != nil {
		return err
	}
	e.WriteUint8(count)
	c.Objects.WriteTo(e)
	return nil
}

// Work tasks objects to work on a target, such as gathering or building.
type Work struct {
	Target   *ObjectID
	Location Location2
	Objects  ObjectList
}

func (*Work) Opcode() Opcode { return OpWork }

// Selection returns the tasked objects.
func (c *Work) Selection() ObjectList { return c.Objects }

func decodeWork(d *Decoder) (Command, error) {
	c := &Work{}
	var err error
	if err = d.Skip(3); err != nil {
		return nil, err
	}
	if c.Target, err = d.ReadOptObjectID("target"); err != nil {
		return nil, err
	}
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, err
	}
	if err = d.Skip(3); err != nil {
		return nil, err
	}
	if c.Location, err = d.ReadLocation2("location"); err != nil {
		return nil, err
	}
	if c.Objects, err = readByteCountList(d, count); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Work) encode(e *Encoder) error {
	count, err := byteCount(OpWork, c.Objects)
	if err != nil {
		return err
	}
	e.WritePadding(3)
	e.WriteOptObjectID(c.Target)
	e.WriteUint8(count)
	e.WritePadding(3)
	e.WriteLocation2(c.Location)
	c.Objects.WriteTo(e)
	return nil
}

// Move tasks objects to move.
type Move struct {
	Player   PlayerID
	Target   *ObjectID
	Location Location2
	Objects  ObjectList
}

func (*Move) Opcode() Opcode { return OpMove }

// Selection returns the moving objects.
func (c *Move) Selection() ObjectList { return c.Objects }

func decodeMove(d *Decoder) (Command, error) {
	c := &Move{}
	var err error
	if c.Player, err = d.ReadPlayerID("player"); err != nil {
		return nil, err
	}
	if err = d.Skip(2); err != nil {
		return nil, err
	}
	if c.Target, err = d.ReadOptObjectID("target"); err != nil {
		return nil, err
	}
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, err
	}
	if err = d.Skip(3); err != nil {
		return nil, err
	}
	if c.Location, err = d.ReadLocation2("location"); err != nil {
		return nil, err
	}
	if c.Objects, err = readByteCountList(d, count); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Move) encode(e *Encoder) error {
	count, err := byteCount(OpMove, c.Objects)
	if err != nil {
		return err
	}
	e.WriteUint8(uint8(c.Player))
	e.WritePadding(2)
	e.WriteOptObjectID(c.Target)
	e.WriteUint8(count)
	e.WritePadding(3)
	e.WriteLocation2(c.Location)
	c.Objects.WriteTo(e)
	return nil
}

// AIOrder is an order issued by an AI player or by the unit AI.
//
// A single tasked object travels inline in the command header instead of
// in the trailing list. With any other count that header slot is normally
// 0xFFFFFFFF; HeaderObject keeps it when it is not.
type AIOrder struct {
	Player       PlayerID
	Issuer       PlayerID
	OrderType    uint16
	Priority     int8
	Target       *ObjectID
	TargetPlayer *PlayerID
	Location     Location3
	Range        float32
	Immediate    bool
	AddToFront   bool
	Objects      ObjectList
	HeaderObject *ObjectID
}

func (*AIOrder) Opcode() Opcode { return OpAIOrder }

// Selection returns the ordered objects.
func (c *AIOrder) Selection() ObjectList { return c.Objects }

func decodeAIOrder(d *Decoder) (Command, error) {
	c := &AIOrder{}
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, err
	}
	if c.Player, err = d.ReadPlayerID("player"); err != nil {
		return nil, err
	}
	if c.Issuer, err = d.ReadPlayerID("issuer"); err != nil {
		return nil, err
	}
	inline, err := d.ReadOptObjectID("object")
	if err != nil {
		return nil, err
	}
	if c.OrderType, err = d.ReadUint16("order type"); err != nil {
		return nil, err
	}
	if c.Priority, err = d.ReadInt8("priority"); err != nil {
		return nil, err
	}
	if err = d.Skip(1); err != nil {
		return nil, err
	}
	if c.Target, err = d.ReadOptObjectID("target"); err != nil {
		return nil, err
	}
	tp, err := d.ReadInt8("target player")
	if err != nil {
		return nil, err
	}
	switch {
	case tp == -1:
	case tp < 0:
		return nil, d.narrowingError("target player", int64(tp))
	default:
		p := PlayerID(tp)
		c.TargetPlayer = &p
	}
	if err = d.Skip(3); err != nil {
		return nil, err
	}
	if c.Location, err = d.ReadLocation3("location"); err != nil {
		return nil, err
	}
	if c.Range, err = d.ReadFloat32("range"); err != nil {
		return nil, err
	}
	if c.Immediate, err = d.ReadBool("immediate"); err != nil {
		return nil, err
	}
	if c.AddToFront, err = d.ReadBool("add to front"); err != nil {
		return nil, err
	}
	if err = d.Skip(2); err != nil {
		return nil, err
	}
	if count == 1 {
		id := ObjectID(NoneU32)
		if inline != nil {
			id = *inline
		}
		c.Objects = Objects(id)
		return c, nil
	}
	c.HeaderObject = inline
	if c.Objects, err = readByteCountList(d, count); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *AIOrder) encode(e *Encoder) error {
	count, err := byteCount(OpAIOrder, c.Objects)
	if err != nil {
		return err
	}
	if c.TargetPlayer != nil && *c.TargetPlayer > 0x7F {
		return encodeRangeError(OpAIOrder, "target player", int(*c.TargetPlayer))
	}
	inline := count == 1 && !c.Objects.SameAsLast
	if inline && c.HeaderObject != nil {
		return encodeRangeError(OpAIOrder, "header object", int(*c.HeaderObject))
	}
	e.WriteUint8(count)
	e.WriteUint8(uint8(c.Player))
	e.WriteUint8(uint8(c.Issuer))
	if inline {
		e.WriteObjectID(c.Objects.Objects[0])
	} else {
		e.WriteOptObjectID(c.HeaderObject)
	}
	e.WriteUint16(c.OrderType)
	e.WriteInt8(c.Priority)
	e.WritePadding(1)
	e.WriteOptObjectID(c.Target)
	if c.TargetPlayer == nil {
		e.WriteInt8(-1)
	} else {
		e.WriteUint8(uint8(*c.TargetPlayer))
	}
	e.WritePadding(3)
	e.WriteLocation3(c.Location)
	e.WriteFloat32(c.Range)
	e.WriteBool(c.Immediate)
	e.WriteBool(c.AddToFront)
	e.WritePadding(2)
	if !inline {
		c.Objects.WriteTo(e)
	}
	return nil
}

// GroupWaypoint adds a waypoint for a group of objects. The waypoint is a
// map tile.
type GroupWaypoint struct {
	Player  PlayerID
	Tile    Tile
	Objects ObjectList
}

func (*GroupWaypoint) Opcode() Opcode { return OpGroupWaypoint }

// Selection returns the objects receiving the waypoint.
func (c *GroupWaypoint) Selection() ObjectList { return c.Objects }

func decodeGroupWaypoint(d *Decoder) (Command, error) {
	c := &GroupWaypoint{}
	var err error
	if c.Player, err = d.ReadPlayerID("player"); err != nil {
		return nil, err
	}
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, err
	}
	if c.Tile, err = d.ReadTile("tile"); err != nil {
		return nil, err
	}
	if c.Objects, err = readByteCountList(d, count); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *GroupWaypoint) encode(e *Encoder) error {
	count, err := byteCount(OpGroupWaypoint, c.Objects)
	if err != nil {
		return err
	}
	e.WriteUint8(uint8(c.Player))
	e.WriteUint8(count)
	e.WriteTile(c.Tile)
	c.Objects.WriteTo(e)
	return nil
}

// UnitAIState sets the stance of objects (aggressive, defensive, ...).
type UnitAIState struct {
	State   int8
	Objects ObjectList
}

func (*UnitAIState) Opcode() Opcode { return OpUnitAIState }

// Selection returns the affected objects.
func (c *UnitAIState) Selection() ObjectList { return c.Objects }

func decodeUnitAIState(d *Decoder) (Command, error) {
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, err
	}
	state, err := d.ReadInt8("state")
	if err != nil {
		return nil, err
	}
	objects, err := readByteCountList(d, count)
	if err != nil {
		return nil, err
	}
	return &UnitAIState{State: state, Objects: objects}, nil
}

func (c *UnitAIState) encode(e *Encoder) error {
	count, err := byteCount(OpUnitAIState, c.Objects)
	if err != nil {
		return err
	}
	e.WriteUint8(count)
	e.WriteInt8(c.State)
	c.Objects.WriteTo(e)
	return nil
}

// Guard tasks objects to guard a target.
type Guard struct {
	Target  *ObjectID
	Objects ObjectList
}

func (*Guard) Opcode() Opcode { return OpGuard }

// Selection returns the guarding objects.
func (c *Guard) Selection() ObjectList { return c.Objects }

func decodeGuard(d *Decoder) (Command, error) {
	target, objects, err := decodeTargeted(d)
	if err != nil {
		return nil, err
	}
	return &Guard{Target: target, Objects: objects}, nil
}

func (c *Guard) encode(e *Encoder) error {
	return encodeTargeted(e, OpGuard, c.Target, c.Objects)
}

// Follow tasks objects to follow a target.
type Follow struct {
	Target  *ObjectID
	Objects ObjectList
}

func (*Follow) Opcode() Opcode { return OpFollow }

// Selection returns the following objects.
func (c *Follow) Selection() ObjectList { return c.Objects }

func decodeFollow(d *Decoder) (Command, error) {
	target, objects, err := decodeTargeted(d)
	if err != nil {
		return nil, err
	}
	return &Follow{Target: target, Objects: objects}, nil
}

func (c *Follow) encode(e *Encoder) error {
	return encodeTargeted(e, OpFollow, c.Target, c.Objects)
}

// Repair tasks villagers to repair a target.
type Repair struct {
	Target  *ObjectID
	Objects ObjectList
}

func (*Repair) Opcode() Opcode { return OpRepair }

// Selection returns the repairing objects.
func (c *Repair) Selection() ObjectList { return c.Objects }

func decodeRepair(d *Decoder) (Command, error) {
	target, objects, err := decodeTargeted(d)
	if err != nil {
		return nil, err
	}
	return &Repair{Target: target, Objects: objects}, nil
}

func (c *Repair) encode(e *Encoder) error {
	return encodeTargeted(e, OpRepair, c.Target, c.Objects)
}

// decodeTargeted reads the shared count u8, pad2, target, ids layout.
func decodeTargeted(d *Decoder) (*ObjectID, ObjectList, error) {
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, ObjectList{}, err
	}
	if err = d.Skip(2); err != nil {
		return nil, ObjectList{}, err
	}
	target, err := d.ReadOptObjectID("target")
	if err != nil {
		return nil, ObjectList{}, err
	}
	objects, err := readByteCountList(d, count)
	if err != nil {
		return nil, ObjectList{}, err
	}
	return target, objects, nil
}

func encodeTargeted(e *Encoder, op Opcode, target *ObjectID, objects ObjectList) error {
	count, err := byteCount(op, objects)
	if err != nil {
		return err
	}
	e.WriteUint8(count)
	e.WritePadding(2)
	e.WriteOptObjectID(target)
	objects.WriteTo(e)
	return nil
}

// Patrol tasks objects to patrol along up to MaxPatrolWaypoints points.
//
// Waypoints holds every slot as it appears on the wire; only the first
// NumWaypoints are part of the path.
type Patrol struct {
	NumWaypoints uint8
	Waypoints    [MaxPatrolWaypoints]Location2
	Objects      ObjectList
}

func (*Patrol) Opcode() Opcode { return OpPatrol }

// Selection returns the patrolling objects.
func (c *Patrol) Selection() ObjectList { return c.Objects }

// Path returns the occupied waypoints.
func (c *Patrol) Path() []Location2 {
	n := int(c.NumWaypoints)
	if n > MaxPatrolWaypoints {
		n = MaxPatrolWaypoints
	}
	return c.Waypoints[:n]
}

// NewPatrol builds a Patrol over the given path.
func NewPatrol(objects ObjectList, path ...Location2) (*Patrol, error) {
	if len(path) > MaxPatrolWaypoints {
		return nil, encodeRangeError(OpPatrol, "waypoints", len(path))
	}
	c := &Patrol{NumWaypoints: uint8(len(path)), Objects: objects}
	copy(c.Waypoints[:], path)
	return c, nil
}

func decodePatrol(d *Decoder) (Command, error) {
	c := &Patrol{}
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, err
	}
	if c.NumWaypoints, err = d.ReadUint8("waypoint count"); err != nil {
		return nil, err
	}
	if c.NumWaypoints > MaxPatrolWaypoints {
		return nil, d.narrowingError("waypoint count", int64(c.NumWaypoints))
	}
	if err = d.Skip(1); err != nil {
		return nil, err
	}
	for i := range c.Waypoints {
		if c.Waypoints[i].X, err = d.ReadFloat32("waypoint x"); err != nil {
			return nil, err
		}
	}
	for i := range c.Waypoints {
		if c.Waypoints[i].Y, err = d.ReadFloat32("waypoint y"); err != nil {
			return nil, err
		}
	}
	if c.Objects, err = readByteCountList(d, count); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Patrol) encode(e *Encoder) error {
	count, err := byteCount(OpPatrol, c.Objects)
	if err != nil {
		return err
	}
	if c.NumWaypoints > MaxPatrolWaypoints {
		return encodeRangeError(OpPatrol, "waypoints", int(c.NumWaypoints))
	}
	e.WriteUint8(count)
	e.WriteUint8(c.NumWaypoints)
	e.WritePadding(1)
	for _, w := range c.Waypoints {
		e.WriteFloat32(w.X)
	}
	for _, w := range c.Waypoints {
		e.WriteFloat32(w.Y)
	}
	c.Objects.WriteTo(e)
	return nil
}

// FormFormation arranges objects in a formation.
type FormFormation struct {
	Player    PlayerID
	Formation int32
	Objects   ObjectList
}

func (*FormFormation) Opcode() Opcode { return OpFormFormation }

// Selection returns the objects in the formation.
func (c *FormFormation) Selection() ObjectList { return c.Objects }

func decodeFormFormation(d *Decoder) (Command, error) {
	c := &FormFormation{}
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, err
	}
	if c.Player, err = d.ReadPlayerID("player"); err != nil {
		return nil, err
	}
	if err = d.Skip(1); err != nil {
		return nil, err
	}
	if c.Formation, err = d.ReadInt32("formation"); err != nil {
		return nil, err
	}
	if c.Objects, err = readByteCountList(d, count); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *FormFormation) encode(e *Encoder) error {
	count, err := byteCount(OpFormFormation, c.Objects)
	if err != nil {
		return err
	}
	e.WriteUint8(count)
	e.WriteUint8(uint8(c.Player))
	e.WritePadding(1)
	e.WriteInt32(c.Formation)
	c.Objects.WriteTo(e)
	return nil
}

// Build places a building foundation and tasks builders to it.
type Build struct {
	Player   PlayerID
	Location Location2
	UnitType UnitTypeID
	UniqueID *uint32
	Frame    uint8
	Builders ObjectList
}

func (*Build) Opcode() Opcode { return OpBuild }

// Selection returns the builders.
func (c *Build) Selection() ObjectList { return c.Builders }

func decodeBuild(d *Decoder) (Command, error) {
	c := &Build{}
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, err
	}
	if c.Player, err = d.ReadPlayerID("player"); err != nil {
		return nil, err
	}
	if err = d.Skip(1); err != nil {
		return nil, err
	}
	if c.Location, err = d.ReadLocation2("location"); err != nil {
		return nil, err
	}
	if c.UnitType, err = d.ReadUnitTypeID("unit type"); err != nil {
		return nil, err
	}
	if err = d.Skip(2); err != nil {
		return nil, err
	}
	if c.UniqueID, err = d.ReadOptUint32("unique id"); err != nil {
		return nil, err
	}
	if c.Frame, err = d.ReadUint8("frame"); err != nil {
		return nil, err
	}
	if err = d.Skip(3); err != nil {
		return nil, err
	}
	if c.Builders, err = readByteCountList(d, count); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Build) encode(e *Encoder) error {
	count, err := byteCount(OpBuild, c.Builders)
	if err != nil {
		return err
	}
	e.WriteUint8(count)
	e.WriteUint8(uint8(c.Player))
	e.WritePadding(1)
	e.WriteLocation2(c.Location)
	e.WriteUint16(uint16(c.UnitType))
	e.WritePadding(2)
	e.WriteOptUint32(c.UniqueID)
	e.WriteUint8(c.Frame)
	e.WritePadding(3)
	c.Builders.WriteTo(e)
	return nil
}

// BuildWall places a line of wall or palisade foundations between two
// tiles.
//
// The header ends in a guard field that is always 0xFFFFFFFF. A count of
// 0xFF reuses the previous builders. A count of one with the object
// 0xFFFFFFFF also means nobody is tasked; NoBuilders records that form so
// it stays apart from a plain count of zero.
type BuildWall struct {
	Player     PlayerID
	Start      Tile
	End        Tile
	UnitType   UnitTypeID
	Builders   ObjectList
	NoBuilders bool
}

func (*BuildWall) Opcode() Opcode { return OpBuildWall }

// Selection returns the builders.
func (c *BuildWall) Selection() ObjectList { return c.Builders }

const buildWallGuard = NoneU32

func decodeBuildWall(d *Decoder) (Command, error) {
	c := &BuildWall{}
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, err
	}
	if c.Player, err = d.ReadPlayerID("player"); err != nil {
		return nil, err
	}
	if c.Start, err = d.ReadTile("start"); err != nil {
		return nil, err
	}
	if c.End, err = d.ReadTile("end"); err != nil {
		return nil, err
	}
	if err = d.Skip(1); err != nil {
		return nil, err
	}
	if c.UnitType, err = d.ReadUnitTypeID("unit type"); err != nil {
		return nil, err
	}
	if err = d.Skip(2); err != nil {
		return nil, err
	}
	guard, err := d.ReadUint32("guard")
	if err != nil {
		return nil, err
	}
	if guard != buildWallGuard {
		return nil, d.invariantError("guard", guard, buildWallGuard)
	}
	if c.Builders, err = readByteCountList(d, count); err != nil {
		return nil, err
	}
	if count == 1 && c.Builders.Objects[0] == ObjectID(NoneU32) {
		c.Builders = Objects()
		c.NoBuilders = true
	}
	return c, nil
}

func (c *BuildWall) encode(e *Encoder) error {
	count, err := byteCount(OpBuildWall, c.Builders)
	if err != nil {
		return err
	}
	if c.NoBuilders && (c.Builders.SameAsLast || c.Builders.Len() > 0) {
		return encodeRangeError(OpBuildWall, "builders", c.Builders.Len())
	}
	if c.NoBuilders {
		count = 1
	}
	e.WriteUint8(count)
	e.WriteUint8(uint8(c.Player))
	e.WriteTile(c.Start)
	e.WriteTile(c.End)
	e.WritePadding(1)
	e.WriteUint16(uint16(c.UnitType))
	e.WritePadding(2)
	e.WriteUint32(buildWallGuard)
	if c.NoBuilders {
		e.WriteUint32(NoneU32)
		return nil
	}
	c.Builders.WriteTo(e)
	return nil
}

// AttackGround tasks siege to fire at a location.
type AttackGround struct {
	Location Location2
	Objects  ObjectList
}

func (*AttackGround) Opcode() Opcode { return OpAttackGround }

// Selection returns the attacking objects.
func (c *AttackGround) Selection() ObjectList { return c.Objects }

func decodeAttackGround(d *Decoder) (Command, error) {
	c := &AttackGround{}
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, err
	}
	if err = d.Skip(2); err != nil {
		return nil, err
	}
	if c.Location, err = d.ReadLocation2("location"); err != nil {
		return nil, err
	}
	if c.Objects, err = readByteCountList(d, count); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *AttackGround) encode(e *Encoder) error {
	count, err := byteCount(OpAttackGround, c.Objects)
	if err != nil {
		return err
	}
	e.WriteUint8(count)
	e.WritePadding(2)
	e.WriteLocation2(c.Location)
	c.Objects.WriteTo(e)
	return nil
}

// Ungarrison releases units from buildings, optionally toward a location.
type Ungarrison struct {
	Location *Location2
	Type     int8
	UnitType *uint32
	Objects  ObjectList
}

func (*Ungarrison) Opcode() Opcode { return OpUngarrison }

// Selection returns the buildings being emptied.
func (c *Ungarrison) Selection() ObjectList { return c.Objects }

func decodeUngarrison(d *Decoder) (Command, error) {
	c := &Ungarrison{}
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, err
	}
	if err = d.Skip(2); err != nil {
		return nil, err
	}
	if c.Location, err = d.ReadOptLocation2("location"); err != nil {
		return nil, err
	}
	if c.Type, err = d.ReadInt8("type"); err != nil {
		return nil, err
	}
	if err = d.Skip(3); err != nil {
		return nil, err
	}
	if c.UnitType, err = d.ReadOptUint32("unit type"); err != nil {
		return nil, err
	}
	if c.Objects, err = readByteCountList(d, count); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Ungarrison) encode(e *Encoder) error {
	count, err := byteCount(OpUngarrison, c.Objects)
	if err != nil {
		return err
	}
	e.WriteUint8(count)
	e.WritePadding(2)
	e.WriteOptLocation2(c.Location)
	e.WriteInt8(c.Type)
	e.WritePadding(3)
	e.WriteOptUint32(c.UnitType)
	c.Objects.WriteTo(e)
	return nil
}

// UnitOrder is a targeted order with an explicit action, used for things
// like unloading transports.
type UnitOrder struct {
	Target   *ObjectID
	Action   int8
	Param    *uint8
	Location *Location2
	UniqueID *uint32
	Objects  ObjectList
}

func (*UnitOrder) Opcode() Opcode { return OpUnitOrder }

// Selection returns the ordered objects.
func (c *UnitOrder) Selection() ObjectList { return c.Objects }

func decodeUnitOrder(d *Decoder) (Command, error) {
	c := &UnitOrder{}
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, err
	}
	if err = d.Skip(2); err != nil {
		return nil, err
	}
	if c.Target, err = d.ReadOptObjectID("target"); err != nil {
		return nil, err
	}
	if c.Action, err = d.ReadInt8("action"); err != nil {
		return nil, err
	}
	param, err := d.ReadUint8("param")
	if err != nil {
		return nil, err
	}
	if param != 0xFF {
		c.Param = &param
	}
	if err = d.Skip(2); err != nil {
		return nil, err
	}
	if c.Location, err = d.ReadOptLocation2("location"); err != nil {
		return nil, err
	}
	if c.UniqueID, err = d.ReadOptUint32("unique id"); err != nil {
		return nil, err
	}
	if c.Objects, err = readByteCountList(d, count); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *UnitOrder) encode(e *Encoder) error {
	count, err := byteCount(OpUnitOrder, c.Objects)
	if err != nil {
		return err
	}
	if c.Param != nil && *c.Param == 0xFF {
		return encodeRangeError(OpUnitOrder, "param", int(*c.Param))
	}
	e.WriteUint8(count)
	e.WritePadding(2)
	e.WriteOptObjectID(c.Target)
	e.WriteInt8(c.Action)
	if c.Param == nil {
		e.WriteUint8(0xFF)
	} else {
		e.WriteUint8(*c.Param)
	}
	e.WritePadding(2)
	e.WriteOptLocation2(c.Location)
	e.WriteOptUint32(c.UniqueID)
	c.Objects.WriteTo(e)
	return nil
}

// SetGatherPoint sets the gather point of buildings.
//
// The location is always present on the wire; a nil Location encodes as
// (0, 0).
type SetGatherPoint struct {
	Target     *ObjectID
	TargetType *UnitTypeID
	Location   *Location2
	Buildings  ObjectList
}

func (*SetGatherPoint) Opcode() Opcode { return OpSetGatherPoint }

// Selection returns the buildings.
func (c *SetGatherPoint) Selection() ObjectList { return c.Buildings }

func decodeSetGatherPoint(d *Decoder) (Command, error) {
	c := &SetGatherPoint{}
	count, err := d.ReadUint8("object count")
	if err != nil {
		return nil, err
	}
	if err = d.Skip(2); err != nil {
		return nil, err
	}
	if c.Target, err = d.ReadOptObjectID("target"); err != nil {
		return nil, err
	}
	tt, err := d.ReadOptUint16("target type")
	if err != nil {
		return nil, err
	}
	if tt != nil {
		t := UnitTypeID(*tt)
		c.TargetType = &t
	}
	if err = d.Skip(2); err != nil {
		return nil, err
	}
	loc, err := d.ReadLocation2("location")
	if err != nil {
		return nil, err
	}
	c.Location = &loc
	if c.Buildings, err = readByteCountList(d, count); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *SetGatherPoint) encode(e *Encoder) error {
	count, err := byteCount(OpSetGatherPoint, c.Buildings)
	if err != nil {
		return err
	}
	e.WriteUint8(count)
	e.WritePadding(2)
	e.WriteOptObjectID(c.Target)
	if c.TargetType == nil {
		e.WriteUint16(NoneU16)
	} else {
		e.WriteUint16(uint16(*c.TargetType))
	}
	e.WritePadding(2)
	if c.Location == nil {
		e.WriteLocation2(Location2{})
	} else {
		e.WriteLocation2(*c.Location)
	}
	c.Buildings.WriteTo(e)
	return nil
}
