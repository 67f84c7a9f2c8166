package main

import (
	"bytes"
	"fmt"

	"github.com/vango-dev/mgxrec/pkg/protocol"
)

// buildWorkload encodes a recording of n actions that looks like a game:
// time markers between selections, reused selections and some chat.
func buildWorkload(n int) ([]byte, error) {
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf, protocol.WriterOptions{})

	var worldTime uint32
	for i := 0; i < n; i++ {
		var a protocol.Action
		switch i % 8 {
		case 0:
			worldTime += 100
			a = &protocol.Time{Elapsed: 100}
		case 1, 4:
			base := protocol.ObjectID(i)
			f, err := protocol.NewFrame(&protocol.Move{
				Player:   protocol.PlayerID(1 + i%8),
				Location: protocol.Location2{X: float32(i % 200), Y: float32(i % 120)},
				Objects:  protocol.Objects(base, base+1, base+2),
			}, worldTime)
			if err != nil {
				return nil, err
			}
			a = f
		case 2, 5:
			f, err := protocol.NewFrame(&protocol.Stop{Objects: protocol.ReusePrevious()}, worldTime)
			if err != nil {
				return nil, err
			}
			a = f
		case 7:
			a = &protocol.Chat{Message: fmt.Sprintf("msg %d", i)}
		default:
			a = &protocol.ViewLock{Location: protocol.Location2{X: 10, Y: 20}, Player: 1}
		}
		if err := w.WriteAction(a); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
