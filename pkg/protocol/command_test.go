package protocol

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"testing"
)

func u32p(v uint32) *uint32 { return &v }
func u8p(v uint8) *uint8    { return &v }
func playerp(v PlayerID) *PlayerID {
	return &v
}
func unitTypep(v UnitTypeID) *UnitTypeID {
	return &v
}

func mustPatrol(t *testing.T, objects ObjectList, path ...Location2) *Patrol {
	t.Helper()
	p, err := NewPatrol(objects, path...)
	if err != nil {
		t.Fatalf("NewPatrol() error = %v", err)
	}
	return p
}

func TestCommandRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		wantLen int
	}{
		{"Order", &Order{Player: 2, Target: ObjectIDPtr(77), Location: Location2{X: 10.5, Y: 20}, Objects: Objects(1, 2, 3)}, 20 + 12},
		{"Order no target", &Order{Player: 1, Location: Location2{X: 1, Y: 1}, Objects: Objects(5)}, 20 + 4},
		{"Order reuse", &Order{Player: 1, Objects: ReusePrevious()}, 20},
		{"Stop", &Stop{Objects: Objects(9, 8)}, 2 + 8},
		{"Stop reuse", &Stop{Objects: ReusePrevious()}, 2},
		{"Work", &Work{Target: ObjectIDPtr(400), Location: Location2{X: 3, Y: 4}, Objects: Objects(1)}, 20 + 4},
		{"Move", &Move{Player: 3, Location: Location2{X: 50, Y: 60}, Objects: Objects(11, 12)}, 20 + 8},
		{"Create", &Create{UnitType: 83, Player: 1, Location: Location3{X: 1, Y: 2, Z: 3}}, 18},
		{"AddResource", &AddResource{Player: 4, Resource: 2, Amount: 1000}, 8},
		{"AIOrder inline", &AIOrder{
			Player: 5, Issuer: 5, OrderType: 700, Priority: 3,
			Target: ObjectIDPtr(33), TargetPlayer: playerp(2),
			Location: Location3{X: 1, Y: 2, Z: 0}, Range: 4.5,
			Immediate: true, Objects: Objects(1234),
		}, 40},
		{"AIOrder list", &AIOrder{Player: 6, Issuer: 6, Priority: -1, AddToFront: true, Objects: Objects(1, 2)}, 40 + 8},
		{"AIOrder empty", &AIOrder{Player: 6, Issuer: 6, Objects: Objects()}, 40},
		{"AIOrder header object", &AIOrder{Player: 6, Objects: Objects(1, 2), HeaderObject: ObjectIDPtr(77)}, 40 + 8},
		{"Resign", &Resign{Player: 2, CommPlayer: 3, Dropped: true}, 4},
		{"GroupWaypoint", &GroupWaypoint{Player: 1, Tile: Tile{X: 40, Y: 41}, Objects: Objects(5, 6)}, 5 + 8},
		{"UnitAIState", &UnitAIState{State: 2, Objects: Objects(7)}, 3 + 4},
		{"Guard", &Guard{Target: ObjectIDPtr(12), Objects: Objects(1)}, 8 + 4},
		{"Follow", &Follow{Target: ObjectIDPtr(13), Objects: ReusePrevious()}, 8},
		{"Repair", &Repair{Target: ObjectIDPtr(14), Objects: Objects(2, 3)}, 8 + 8},
		{"Patrol", mustPatrol(t, Objects(1, 2), Location2{X: 1, Y: 2}, Location2{X: 3, Y: 4}), 84 + 8},
		{"Patrol full", mustPatrol(t, Objects(1), make([]Location2, MaxPatrolWaypoints)...), 84 + 4},
		{"FormFormation", &FormFormation{Player: 1, Formation: 2, Objects: Objects(1, 2, 3)}, 8 + 12},
		{"UserPatchAI", &UserPatchAI{Action: 3, Player: 2, Params: []uint32{1, 2, 3, 4}}, 4 + 16},
		{"UserPatchAI no params", &UserPatchAI{Action: 1, Player: 1, Params: []uint32{}}, 4},
		{"Make", &Make{Building: 100, Player: 1, UnitType: 83, Target: ObjectIDPtr(5)}, 16},
		{"Research", &Research{Building: 101, Player: 2, Tech: 22}, 16},
		{"Build", &Build{Player: 1, Location: Location2{X: 10, Y: 11}, UnitType: 70, UniqueID: u32p(9), Frame: 1, Builders: Objects(3, 4)}, 24 + 8},
		{"Build no id", &Build{Player: 1, UnitType: 70, Builders: ReusePrevious()}, 24},
		{"Game", &Game{Command: &SetGameSpeed{Player: 1, Speed: 2}}, 16},
		{"BuildWall", &BuildWall{Player: 1, Start: Tile{X: 1, Y: 2}, End: Tile{X: 3, Y: 4}, UnitType: 72, Builders: Objects(8, 9)}, 16 + 8},
		{"BuildWall empty", &BuildWall{Player: 1, UnitType: 72, Builders: Objects()}, 16},
		{"BuildWall no builders", &BuildWall{Player: 1, UnitType: 72, Builders: Objects(), NoBuilders: true}, 16 + 4},
		{"BuildWall reuse", &BuildWall{Player: 1, UnitType: 72, Builders: ReusePrevious()}, 16},
		{"CancelBuild", &CancelBuild{Building: 55, Player: 3}, 12},
		{"AttackGround", &AttackGround{Location: Location2{X: 9, Y: 9}, Objects: Objects(1)}, 12 + 4},
		{"Ungarrison", &Ungarrison{Location: &Location2{X: 5, Y: 6}, Type: 3, UnitType: u32p(4), Objects: Objects(1)}, 20 + 4},
		{"Ungarrison no location", &Ungarrison{Type: 1, Objects: Objects(1, 2)}, 20 + 8},
		{"Flare", &Flare{Player: 1, CommPlayer: 1, Recipients: [FlareRecipients]bool{false, true, true}, Location: Location2{X: 7, Y: 8}}, 32},
		{"UnitOrder", &UnitOrder{Target: ObjectIDPtr(3), Action: 1, Param: u8p(4), Location: &Location2{X: 2, Y: 2}, UniqueID: u32p(5), Objects: Objects(6)}, 24 + 4},
		{"UnitOrder empty options", &UnitOrder{Action: -1, Objects: ReusePrevious()}, 24},
		{"Queue", &Queue{Building: 10, UnitType: 4, Amount: 5}, 12},
		{"SetGatherPoint", &SetGatherPoint{Target: ObjectIDPtr(8), TargetType: unitTypep(59), Location: &Location2{X: 1, Y: 2}, Buildings: Objects(100)}, 20 + 4},
		{"SellResource", &SellResource{MarketTrade{Player: 1, Resource: 1, Amount: 1, Market: 99}}, 8},
		{"BuyResource", &BuyResource{MarketTrade{Player: 2, Resource: 3, Amount: 5, Market: 98}}, 8},
		{"Unknown7F", &Unknown7F{Object: 1, Value: 2}, 12},
		{"BackToWork", &BackToWork{Building: 77}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeCommand(tt.cmd)
			if err != nil {
				t.Fatalf("EncodeCommand() error = %v", err)
			}
			if len(data) != tt.wantLen {
				t.Errorf("len(EncodeCommand()) = %d; want %d", len(data), tt.wantLen)
			}
			if Opcode(data[0]) != tt.cmd.Opcode() {
				t.Errorf("opcode byte = %v; want %v", Opcode(data[0]), tt.cmd.Opcode())
			}

			d := NewDecoder(data)
			got, err := DecodeCommandFrom(d)
			if err != nil {
				t.Fatalf("DecodeCommand() error = %v", err)
			}
			if !d.EOF() {
				t.Errorf("DecodeCommand() left %d bytes", d.Remaining())
			}
			if !reflect.DeepEqual(got, tt.cmd) {
				t.Errorf("DecodeCommand() = %+v; want %+v", got, tt.cmd)
			}
		})
	}
}

func TestEveryOpcodeDecodes(t *testing.T) {
	// Every modeled opcode must appear in the dispatch switch.
	for _, op := range Opcodes() {
		data := append([]byte{byte(op)}, make([]byte, 200)...)
		_, err := DecodeCommand(data)
		if CodeOf(err) == CodeUnsupportedOpcode {
			t.Errorf("%v: DecodeCommand() = unsupported opcode", op)
		}
	}
}

func TestOrderReuseMarker(t *testing.T) {
	e := NewEncoder()
	e.WriteUint8(uint8(OpOrder))
	e.WriteUint8(1)
	e.WritePadding(2)
	e.WriteUint32(NoneU32)
	e.WriteInt32(0xFF)
	e.WriteLocation2(Location2{X: 1, Y: 2})
	e.WriteUint32(0xDEADBEEF) // not part of the command

	d := NewDecoder(e.Bytes())
	cmd, err := DecodeCommandFrom(d)
	if err != nil {
		t.Fatalf("DecodeCommand() error = %v", err)
	}
	order := cmd.(*Order)
	if !order.Objects.SameAsLast {
		t.Errorf("Objects = %+v; want reuse marker", order.Objects)
	}
	if d.Remaining() != 4 {
		t.Errorf("Remaining() = %d; want 4 (no id bytes consumed)", d.Remaining())
	}
}

func TestByteCountMarker(t *testing.T) {
	// A count byte of 0xFF is the marker even where the field is signed.
	data := []byte{byte(OpStop), 0xFF, 1, 2, 3, 4}
	cmd, err := DecodeCommand(data)
	if err != nil {
		t.Fatalf("DecodeCommand() error = %v", err)
	}
	if !cmd.(*Stop).Objects.SameAsLast {
		t.Errorf("Objects = %+v; want reuse marker", cmd.(*Stop).Objects)
	}
}

func TestOrderWideMarkerCount(t *testing.T) {
	// The Order count is 32 bits wide; 0xFFFFFFFF is a marker like 0xFF.
	for _, count := range []uint32{0xFFFFFFFF, 0x100} {
		e := NewEncoder()
		e.WriteUint8(uint8(OpOrder))
		e.WriteUint8(1)
		e.WritePadding(2)
		e.WriteUint32(NoneU32)
		e.WriteUint32(count)
		e.WriteLocation2(Location2{X: 3, Y: 4})
		data := e.Bytes()

		cmd, err := DecodeCommand(append(data, 9, 9, 9, 9))
		if err != nil {
			t.Fatalf("%#x: DecodeCommand() error = %v", count, err)
		}
		got := cmd.(*Order).Objects
		if !got.SameAsLast || got.Len() != 0 {
			t.Errorf("%#x: Objects = %+v; want reuse marker", count, got)
		}

		again, err := EncodeCommand(cmd)
		if err != nil {
			t.Fatalf("%#x: EncodeCommand() error = %v", count, err)
		}
		if !bytes.Equal(again, data) {
			t.Errorf("%#x: re-encoded % x; want % x", count, again, data)
		}
	}
}

func buildWallBytes(count uint8, guard uint32, ids ...uint32) []byte {
	e := NewEncoder()
	e.WriteUint8(uint8(OpBuildWall))
	e.WriteUint8(count)
	e.WriteUint8(1)
	e.WriteTile(Tile{X: 1, Y: 1})
	e.WriteTile(Tile{X: 5, Y: 1})
	e.WritePadding(1)
	e.WriteUint16(72)
	e.WritePadding(2)
	e.WriteUint32(guard)
	for _, id := range ids {
		e.WriteUint32(id)
	}
	return e.Bytes()
}

func TestBuildWall(t *testing.T) {
	t.Run("reuse", func(t *testing.T) {
		cmd, err := DecodeCommand(buildWallBytes(0xFF, NoneU32))
		if err != nil {
			t.Fatalf("DecodeCommand() error = %v", err)
		}
		if !cmd.(*BuildWall).Builders.SameAsLast {
			t.Errorf("Builders = %+v; want reuse marker", cmd.(*BuildWall).Builders)
		}
	})

	// Both empty forms decode to an explicit empty list and re-encode
	// to the bytes they were read from.
	for _, tt := range []struct {
		name       string
		data       []byte
		noBuilders bool
	}{
		{"nobody", buildWallBytes(1, NoneU32, NoneU32), true},
		{"zero count", buildWallBytes(0, NoneU32), false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeCommand(tt.data)
			if err != nil {
				t.Fatalf("DecodeCommand() error = %v", err)
			}
			wall := cmd.(*BuildWall)
			if b := wall.Builders; b.SameAsLast || b.Len() != 0 {
				t.Errorf("Builders = %+v; want explicit empty list", b)
			}
			if wall.NoBuilders != tt.noBuilders {
				t.Errorf("NoBuilders = %v; want %v", wall.NoBuilders, tt.noBuilders)
			}
			again, err := EncodeCommand(wall)
			if err != nil {
				t.Fatalf("EncodeCommand() error = %v", err)
			}
			if !bytes.Equal(again, tt.data) {
				t.Errorf("re-encoded %d bytes % x; want %d bytes % x", len(again), again, len(tt.data), tt.data)
			}
		})
	}

	t.Run("no builders with a list", func(t *testing.T) {
		_, err := EncodeCommand(&BuildWall{Builders: Objects(4), NoBuilders: true})
		if !errors.Is(err, ErrNarrowing) {
			t.Errorf("EncodeCommand() error = %v; want ErrNarrowing", err)
		}
	})

	t.Run("one builder", func(t *testing.T) {
		cmd, err := DecodeCommand(buildWallBytes(1, NoneU32, 42))
		if err != nil {
			t.Fatalf("DecodeCommand() error = %v", err)
		}
		if got := cmd.(*BuildWall).Builders; !got.Equal(Objects(42)) {
			t.Errorf("Builders = %+v; want [42]", got)
		}
	})

	t.Run("guard mismatch", func(t *testing.T) {
		_, err := DecodeCommand(buildWallBytes(0, 0))
		if !errors.Is(err, ErrInvariant) {
			t.Fatalf("DecodeCommand() error = %v; want ErrInvariant", err)
		}
		var de *DecodeError
		if !errors.As(err, &de) || de.Opcode == nil || *de.Opcode != OpBuildWall {
			t.Errorf("DecodeError = %+v; want opcode BuildWall", de)
		}
	})
}

func TestFlareGuard(t *testing.T) {
	data, err := EncodeCommand(&Flare{Player: 1})
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	data[4] = 0 // first guard byte
	if _, err := DecodeCommand(data); CodeOf(err) != CodeInvariant {
		t.Errorf("DecodeCommand() error = %v; want Invariant", err)
	}
}

func TestCommandDecodeErrors(t *testing.T) {
	userPatch := func(params int) []byte {
		e := NewEncoder()
		e.WriteUint8(uint8(OpUserPatchAI))
		e.WritePadding(3)
		e.WritePadding(4 * params)
		return e.Bytes()
	}
	patrol := func(waypoints uint8) []byte {
		e := NewEncoder()
		e.WriteUint8(uint8(OpPatrol))
		e.WriteUint8(0)
		e.WriteUint8(waypoints)
		e.WritePadding(1 + 80)
		return e.Bytes()
	}
	cancel := func(player int32) []byte {
		e := NewEncoder()
		e.WriteUint8(uint8(OpCancelBuild))
		e.WritePadding(3)
		e.WriteUint32(1)
		e.WriteInt32(player)
		return e.Bytes()
	}
	aiOrder := func(targetPlayer int8) []byte {
		data, _ := EncodeCommand(&AIOrder{Objects: Objects()})
		data[16] = byte(targetPlayer)
		return data
	}

	tests := []struct {
		name     string
		data     []byte
		wantCode ErrorCode
		wantErr  error
	}{
		{"empty", nil, CodeTruncated, io.ErrUnexpectedEOF},
		{"unsupported opcode", []byte{0x99, 1, 2, 3}, CodeUnsupportedOpcode, ErrUnsupportedOpcode},
		{"truncated order", []byte{byte(OpOrder), 1, 0}, CodeTruncated, io.ErrUnexpectedEOF},
		{"truncated ids", []byte{byte(OpStop), 2, 1, 0, 0, 0}, CodeTruncated, io.ErrUnexpectedEOF},
		{"too many user patch params", userPatch(5), CodeNarrowing, ErrNarrowing},
		{"too many waypoints", patrol(11), CodeNarrowing, ErrNarrowing},
		{"negative player", cancel(-1), CodeNarrowing, ErrNarrowing},
		{"player too large", cancel(256), CodeNarrowing, ErrNarrowing},
		{"negative target player", aiOrder(-2), CodeNarrowing, ErrNarrowing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand(tt.data)
			if CodeOf(err) != tt.wantCode {
				t.Errorf("CodeOf(err) = %v; want %v (err = %v)", CodeOf(err), tt.wantCode, err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(err, %v) = false; err = %v", tt.wantErr, err)
			}
		})
	}
}

func TestCommandEncodeErrors(t *testing.T) {
	tooMany := Objects(make([]ObjectID, 255)...)
	tests := []struct {
		name string
		cmd  Command
	}{
		{"stop 255 objects", &Stop{Objects: tooMany}},
		{"user patch 5 params", &UserPatchAI{Params: make([]uint32, 5)}},
		{"patrol 11 waypoints", &Patrol{NumWaypoints: 11}},
		{"unit order param 255", &UnitOrder{Param: u8p(0xFF), Objects: Objects()}},
		{"ai order target player 200", &AIOrder{TargetPlayer: playerp(200), Objects: Objects()}},
		{"ai order inline and header object", &AIOrder{Objects: Objects(5), HeaderObject: ObjectIDPtr(6)}},
		{"game without sub-command", &Game{}},
		{"negative strategic number value", &Game{Command: &SetStrategicNumber{Value: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEncoder()
			e.WriteUint8(0xAA)
			err := EncodeCommandTo(e, tt.cmd)
			if err == nil {
				t.Fatal("EncodeCommandTo() error = nil; want error")
			}
			var ee *EncodeError
			if !errors.As(err, &ee) {
				t.Errorf("error = %T; want *EncodeError", err)
			}
			if e.Len() != 1 {
				t.Errorf("encoder length = %d after failed encode; want 1", e.Len())
			}
		})
	}
	if _, err := NewPatrol(Objects(), make([]Location2, 11)...); err == nil {
		t.Error("NewPatrol(11 waypoints) error = nil; want error")
	}
}

func TestAIOrderInlineObject(t *testing.T) {
	data, err := EncodeCommand(&AIOrder{Objects: Objects(0x01020304)})
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	if data[1] != 1 {
		t.Errorf("count byte = %d; want 1", data[1])
	}
	if got := string(data[4:8]); got != "\x04\x03\x02\x01" {
		t.Errorf("inline object = %x; want 04030201", data[4:8])
	}
	if len(data) != 40 {
		t.Errorf("len = %d; want 40 (no trailing list)", len(data))
	}
}

func TestAIOrderHeaderObjectPreserved(t *testing.T) {
	data, err := EncodeCommand(&AIOrder{Objects: Objects(1, 2)})
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	if got := string(data[4:8]); got != "\xff\xff\xff\xff" {
		t.Errorf("header object = %x; want ffffffff", data[4:8])
	}
	copy(data[4:8], []byte{9, 0, 0, 0})

	cmd, err := DecodeCommand(data)
	if err != nil {
		t.Fatalf("DecodeCommand() error = %v", err)
	}
	order := cmd.(*AIOrder)
	if order.HeaderObject == nil || *order.HeaderObject != 9 {
		t.Errorf("HeaderObject = %v; want 9", order.HeaderObject)
	}
	again, err := EncodeCommand(order)
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Errorf("re-encoded % x; want % x", again, data)
	}
}

func TestOpcodeString(t *testing.T) {
	if got := OpBuildWall.String(); got != "BuildWall" {
		t.Errorf("OpBuildWall.String() = %q; want BuildWall", got)
	}
	if got := Opcode(0x99).String(); got != "Opcode(0x99)" {
		t.Errorf("Opcode(0x99).String() = %q; want Opcode(0x99)", got)
	}
	if op, ok := ParseOpcode("Queue"); !ok || op != OpQueue {
		t.Errorf("ParseOpcode(Queue) = %v, %v; want Queue, true", op, ok)
	}
	if _, ok := ParseOpcode("Dance"); ok {
		t.Error("ParseOpcode(Dance) ok = true; want false")
	}
	if n := len(Opcodes()); n != 32 {
		t.Errorf("len(Opcodes()) = %d; want 32", n)
	}
}

func TestSelectors(t *testing.T) {
	withList := []Command{
		&Order{}, &Stop{}, &Work{}, &Move{}, &AIOrder{}, &GroupWaypoint{},
		&UnitAIState{}, &Guard{}, &Follow{}, &Patrol{}, &FormFormation{},
		&Build{}, &BuildWall{}, &AttackGround{}, &Repair{}, &Ungarrison{},
		&UnitOrder{}, &SetGatherPoint{},
	}
	for _, c := range withList {
		if _, ok := c.(Selector); !ok {
			t.Errorf("%v does not implement Selector", c.Opcode())
		}
	}
	if _, ok := Command(&Queue{}).(Selector); ok {
		t.Error("Queue implements Selector; want not")
	}
}
