package replay

import (
	"context"
	"testing"

	"github.com/vango-dev/mgxrec/pkg/protocol"
)

func TestStats(t *testing.T) {
	r := stream(t,
		&protocol.Time{Elapsed: 500},
		&protocol.Sync{Checksum: 1},
		frame(t, &protocol.Move{Objects: protocol.Objects(1, 2)}, 500),
		frame(t, &protocol.Stop{Objects: protocol.ReusePrevious()}, 500),
		frame(t, &protocol.Order{Objects: protocol.Objects(2, 3)}, 500),
		frame(t, &protocol.Game{Command: &protocol.Spies{Player: 1}}, 500),
		&protocol.Time{Elapsed: 250},
		&protocol.Chat{Message: "gl"},
	)

	stats := NewStats()
	h := Chain(func(context.Context, *Resolved) error { return nil }, stats.Middleware())
	if err := Run(context.Background(), r, h, WithLogger(quietLogger())); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.Total() != 8 {
		t.Errorf("Total() = %d; want 8", stats.Total())
	}
	if stats.Actions[protocol.ActionCommand] != 4 || stats.Actions[protocol.ActionTime] != 2 {
		t.Errorf("Actions = %v", stats.Actions)
	}
	if stats.Commands[protocol.OpMove] != 1 || stats.Commands[protocol.OpGame] != 1 {
		t.Errorf("Commands = %v", stats.Commands)
	}
	if stats.GameCommands[protocol.GameSpies] != 1 {
		t.Errorf("GameCommands = %v", stats.GameCommands)
	}
	if stats.Reused != 1 {
		t.Errorf("Reused = %d; want 1", stats.Reused)
	}
	if stats.Objects.Cardinality() != 3 {
		t.Errorf("Objects = %v; want {1, 2, 3}", stats.Objects)
	}

	sum := stats.Summary()
	if sum.GameTimeMillis != 750 {
		t.Errorf("GameTimeMillis = %d; want 750", sum.GameTimeMillis)
	}
	if sum.Commands["Stop"] != 1 || sum.Actions["Chat"] != 1 || sum.GameCommands["Spies"] != 1 {
		t.Errorf("Summary() = %+v", sum)
	}
	if sum.DistinctObjects != 3 {
		t.Errorf("DistinctObjects = %d; want 3", sum.DistinctObjects)
	}
}

func TestStatsTrailing(t *testing.T) {
	stats := NewStats()
	f := frame(t, &protocol.BackToWork{Building: 1}, 0)
	f.Trailing = []byte{0}
	stats.Observe(&Resolved{Action: f})
	if stats.Trailing != 1 {
		t.Errorf("Trailing = %d; want 1", stats.Trailing)
	}
	if sum := stats.Summary(); sum.GameCommands != nil {
		t.Errorf("GameCommands = %v; want nil without game commands", sum.GameCommands)
	}
}
