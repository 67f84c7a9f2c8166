// Package config provides configuration parsing for mgxrec.
//
// The configuration is stored in mgxrec.json. Every field is optional and
// command-line flags override file values.
//
// # Configuration File Structure
//
//	{
//	  "decode": {
//	    "skipUnsupported": true,
//	    "maxFrameLength": 65536,
//	    "unitActionStateCutoff": 11.76,
//	    "meta": "mgx"
//	  },
//	  "log": {
//	    "level": "debug",
//	    "format": "json"
//	  },
//	  "server": {
//	    "address": ":8080",
//	    "maxUploadSize": 33554432,
//	    "readTimeout": "30s",
//	    "expiry": "24h"
//	  },
//	  "storage": {
//	    "backend": "s3",
//	    "bucket": "recs",
//	    "prefix": "uploads/",
//	    "region": "eu-west-1"
//	  },
//	  "metrics": {"enabled": true},
//	  "tracing": {"enabled": true, "tracerName": "mgxrec"}
//	}
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r := protocol.NewReader(f, cfg.ReaderOptions(logger))
package config
