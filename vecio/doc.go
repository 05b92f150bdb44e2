// Package vecio reads and writes vector datasets in the fvecs format used by
// the FAISS tooling.
//
// An fvecs file is a sequence of rows, each a little-endian int32 dimension
// followed by that many little-endian float32 values:
//
//	data, d, err := vecio.Load(ctx, vecio.NewLocalStore("testdata"), "base.fvecs.zst")
//
// Files are decompressed and compressed transparently based on their
// extension (.gz, .zst, .lz4).
//
// # Stores
//
// A Store resolves names to readers and writers:
//   - LocalStore: a directory on the local file system
//   - MemoryStore: in-memory, for tests
//   - minio.Store: MinIO or any S3-compatible endpoint (vecio/minio)
//   - s3.Store: Amazon S3 through the AWS SDK (vecio/s3)
//
// ParseURI splits "s3://bucket/key" and plain paths into a Location so that
// callers can pick the store.
package vecio
