// Package upload stores recorded games for the inspection server.
//
// Recordings arrive over HTTP, either as a multipart form with a "file"
// field or as a raw application/octet-stream body, and are kept in a Store
// under a random ID until they expire:
//
//	store, _ := upload.NewDiskStore("/var/lib/mgxrec", 32<<20)
//	r.Post("/recs", upload.Handler(store))
//
// Later requests open the recording by ID and decode it:
//
//	file, err := store.Open(ctx, id)
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//	r := protocol.NewReader(file.Reader, protocol.ReaderOptions{})
//
// Two backends are provided: DiskStore keeps recordings in a local
// directory with a JSON sidecar per recording, and S3Store keeps them in a
// bucket with the original filename in object metadata.
//
// IDs are UUIDs. Stores reject anything else before touching the
// filesystem or bucket, so IDs taken from URLs cannot name other files.
package upload
