// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	store, err := s3.NewFromConfig(ctx, "my-bucket", "tables/",
//	    config.WithRegion("eu-central-1"),
//	)
//
//	tbl, err := probingpt.Open(ctx, "fr-en.pbpt", vocab,
//	    probingpt.WithStore(store),
//	)
//
// # Features
//
//   - Ranged GETs for ReadAt
//   - Managed (multipart) uploads for Put
//   - CRC32C integrity checksums on single-part uploads
//   - Configurable key prefix for multi-tenant buckets
package s3
