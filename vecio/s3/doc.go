// Package s3 implements vecio.Store for Amazon S3 using the AWS SDK.
//
// Usage:
//
//	client, err := s3.NewClient(ctx, s3.Config{Region: "us-east-1"})
//	if err != nil {
//	    return err
//	}
//	store := s3.NewStore(client, "datasets", "sift1m/")
//
// Uploads stream through the SDK's multipart upload manager.
package s3
