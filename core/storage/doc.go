// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind a small interface. The sync command
// reads its JSON source documents from a bucket and can write plan reports
// back to it.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (as seen in core/storage/mocks).
//
// # Operations
//
//   - BucketExists: Verifies access to the target bucket.
//   - GetObject: Retrieves content as a stream.
//   - PutObject: Uploads content (with size and options).
//   - ReadJSON / WriteJSON: Decode or encode a whole JSON object.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	var items []things.ThingDTO
//	err = storage.ReadJSON(ctx, client, "collections", "things/source.json", &items)
package storage
