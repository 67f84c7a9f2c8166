// Package protocol implements the action-stream codec of Age of Empires II
// recorded games.
//
// The body of a recorded game is a log of everything that happened during a
// match: player commands, elapsed-time markers, synchronization checksums,
// view-lock updates and chat messages. Replayed against the deterministic
// game simulation, it reproduces the match.
//
// # Wire Format
//
// Every action starts with a 4-byte little-endian action type:
//
//	┌──────────────┬────────────────────────────────────────────┐
//	│ Action Type  │ Body                                       │
//	│ (u32 LE)     │                                            │
//	└──────────────┴────────────────────────────────────────────┘
//
//   - ActionCommand (1): a command frame
//   - ActionTime (2): elapsed milliseconds
//   - ActionSync (0): checksums; only directly after an ActionTime
//   - ActionViewLock (3): where the POV player is looking
//   - ActionChat (4): a chat message
//
// Command frames are bounded by a declared length:
//
//	┌──────────────┬────────┬──────────────────┬─────────┬────────────┐
//	│ Length       │ Opcode │ Fields           │ Padding │ World Time │
//	│ (u32 LE)     │ (u8)   │                  │         │ (u32 LE)   │
//	└──────────────┴────────┴──────────────────┴─────────┴────────────┘
//	               └───────────── Length bytes ──────────┘
//
// The world time sits outside the declared length. Padding that a command
// does not model is discarded.
//
// # Conventions
//
//   - All integers and floats are little-endian.
//   - Optional 32-bit identifiers use 0xFFFFFFFF for "none".
//   - Optional 16-bit identifiers use 0xFFFF for "none".
//   - Object lists are count-prefixed. A count of 0xFF or more means "the
//     same objects as the previous command" and carries no identifiers.
//
// # Usage Example
//
//	r := protocol.NewReader(body, protocol.ReaderOptions{})
//	if _, err := r.ReadMetaMgx(); err != nil {
//	    return err
//	}
//	for {
//	    action, err := r.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    if f, ok := action.(*protocol.Frame); ok {
//	        fmt.Println(f.Command.Opcode(), f.WorldTime)
//	    }
//	}
//
// Resolving "same as last" object lists needs state across records. That
// state belongs to the consumer; see package replay.
//
// # File Structure
//
//   - decoder.go: little-endian decoder and sentinel readers
//   - encoder.go: little-endian encoder and sentinel writers
//   - ids.go: identifier domains and locations
//   - objects.go: object reference lists
//   - command.go: opcode table and command dispatch
//   - command_units.go: unit tasking commands
//   - command_economy.go: production, research and market commands
//   - command_misc.go: cheats, resignation, flares and other commands
//   - game.go: the nested Game sub-protocol
//   - frame.go: command frames
//   - action.go: action types
//   - stream.go: the action-stream Reader and Writer
//   - meta.go: body metadata
//   - unit_action.go: unit action state width
//   - error.go: decode errors
//   - limits.go: allocation limits
package protocol
