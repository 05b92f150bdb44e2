// Package minio implements vecio.Store for MinIO and other S3-compatible
// object stores.
//
// Usage:
//
//	client, err := minio.NewClient(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	})
//	if err != nil {
//	    return err
//	}
//	store := minio.NewStore(client, "datasets", "sift1m/")
//	data, d, err := vecio.Load(ctx, store, "base.fvecs.zst")
//
// Leaving AccessKey empty reads credentials from the standard AWS environment
// variables.
package minio
