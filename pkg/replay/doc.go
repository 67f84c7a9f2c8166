// Package replay drives a protocol.Reader over a whole action stream and
// hands each action, with its cross-record state resolved, to a Handler.
//
// The codec in package protocol decodes one record at a time and never
// looks back. Two things only make sense across records:
//
//   - Object lists that say "same as last", which must be replaced with the
//     list the previous selecting command resolved to.
//   - Game time, which is the running sum of Time records.
//
// Run owns both and passes them along in a Resolved:
//
//	r := protocol.NewReader(f, protocol.ReaderOptions{})
//	err := replay.Run(ctx, r, func(ctx context.Context, rec *replay.Resolved) error {
//	    if cmd := rec.Command(); cmd != nil {
//	        fmt.Println(rec.GameTime, cmd.Opcode(), rec.Objects)
//	    }
//	    return nil
//	})
//
// Handlers compose through Middleware, the same way package middleware
// adds metrics and tracing:
//
//	h := replay.Chain(print, filter.Middleware(), stats.Middleware())
package replay
