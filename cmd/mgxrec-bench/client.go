package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/mgxrec/pkg/protocol"
	"github.com/vango-dev/mgxrec/pkg/server"
)

type benchCounters struct {
	streamsStarted  atomic.Uint64
	streamsComplete atomic.Uint64
	actions         atomic.Uint64
	messageBytes    atomic.Uint64
	messages        atomic.Uint64
}

type benchErrors struct {
	handshakeFailures    atomic.Uint64
	messageDecodeFailure atomic.Uint64
	serverErrors         atomic.Uint64
	shortStreams         atomic.Uint64
	timeouts             atomic.Uint64
	totalErrors          atomic.Uint64
}

type opcodeCounts struct {
	counts [256]atomic.Uint64
}

func (c *opcodeCounts) add(op protocol.Opcode) {
	c.counts[uint8(op)].Add(1)
}

func (c *opcodeCounts) snapshot() map[string]uint64 {
	out := make(map[string]uint64)
	for i := range c.counts {
		count := c.counts[i].Load()
		if count == 0 {
			continue
		}
		out[protocol.Opcode(uint8(i)).String()] = count
	}
	return out
}

// runClient streams the recording back to back until ctx is done. It
// returns the first error that ends the client.
func runClient(
	ctx context.Context,
	wsURL string,
	cfg benchConfig,
	counters *benchCounters,
	errCounts *benchErrors,
	ops *opcodeCounts,
	samples chan<- time.Duration,
) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		start := time.Now()
		counters.streamsStarted.Add(1)
		err := streamOnce(ctx, wsURL, cfg, counters, errCounts, ops)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		counters.streamsComplete.Add(1)
		samples <- time.Since(start)
	}
}

// streamOnce reads one full stream and checks it carried every action.
func streamOnce(
	ctx context.Context,
	wsURL string,
	cfg benchConfig,
	counters *benchCounters,
	errCounts *benchErrors,
	ops *opcodeCounts,
) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(cfg.StreamTimeout))

	actions := 0
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if isTimeout(err) {
				errCounts.timeouts.Add(1)
			}
			return fmt.Errorf("read: %w", err)
		}
		counters.messages.Add(1)
		counters.messageBytes.Add(uint64(len(data)))

		var msg server.StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			errCounts.messageDecodeFailure.Add(1)
			return fmt.Errorf("decode message: %w", err)
		}

		switch msg.Type {
		case server.MessageAction:
			actions++
			counters.actions.Add(1)
			if msg.Action != nil && msg.Action.Command != "" {
				if op, ok := protocol.ParseOpcode(msg.Action.Command); ok {
					ops.add(op)
				}
			}
		case server.MessageError:
			errCounts.serverErrors.Add(1)
			return errors.New("server error message")
		case server.MessageEnd:
			if actions != cfg.Actions {
				errCounts.shortStreams.Add(1)
				return fmt.Errorf("stream ended after %d of %d actions", actions, cfg.Actions)
			}
			return nil
		}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
