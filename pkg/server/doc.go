// Package server serves stored recordings over HTTP and WebSocket.
//
// Routes:
//
//	POST   /recs                 upload a recording (multipart "file" or raw body)
//	GET    /recs                 list recordings, newest first
//	GET    /recs/{id}            recording metadata
//	DELETE /recs/{id}            remove a recording
//	GET    /recs/{id}/actions    decoded actions as JSON
//	GET    /recs/{id}/stats      stream summary
//	GET    /recs/{id}/ws         live action stream (WebSocket)
//	GET    /status               stream counters
//	GET    /metrics              Prometheus metrics, with WithMetrics
//	GET    /healthz              liveness
//
// The decode routes accept three query parameters:
//
//	only=Move,Stop       keep only these action types or commands
//	skip_unsupported=1   keep going past unknown opcodes
//	meta=mgx             read body metadata first (none, mgx or mgl)
//
// Decode failures are answered with 422 and the failing offset, opcode
// and field:
//
//	{"error": "...", "code": "UnsupportedOpcode", "offset": 412, "opcode": "Opcode(0x99)"}
//
// # Usage
//
//	store, _ := upload.NewDiskStore("recs", 32<<20)
//	srv := server.New(store, &server.ServerConfig{Address: ":8080"},
//	    server.WithMetrics(middleware.Prometheus(), prometheus.DefaultGatherer),
//	    server.WithTracing(),
//	)
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	err := srv.Run(ctx)
package server
