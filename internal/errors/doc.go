// Package errors provides coded, actionable error messages for the mgxrec
// command line and server.
//
// Every error carries a code that maps to a message, a longer explanation
// and, where one exists, a hint. Decode failures also carry the stream
// offset, the command and the field being read, and Format shows the
// bytes around the offset:
//
//	ERROR R002: Unsupported command
//
//	  game.mgx@0x1a4 (opcode)
//
//	    00000190 │ 02 00 00 00 0c 00 00 00 03 01 00 00 00 00 00 00
//	  → 000001a0 │ 01 00 00 00 99 00 00 00 00 00 00 00 10 00 00 00
//	             │             ^^
//	    000001b0 │ 02 00 00 00 64 00 00 00
//
//	  A command frame carries an opcode this decoder does not model.
//
//	  Hint: Pass --skip-unsupported to keep such frames as raw bytes.
//
// # Error Codes
//
//   - R000-R019: decode failures, one per protocol.ErrorCode
//   - R020-R039: verify failures
//   - C120-C139: configuration
//   - S200-S219: storage
//   - S220-S239: server
//   - E140-E159: command line
//
// # Usage
//
//	if err := replay.Run(ctx, r, h); err != nil {
//	    errors.PrintError(errors.FromError(err, "R000").WithLocation(path, offset))
//	}
package errors
