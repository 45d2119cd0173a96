package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/probingpt/blobstore"
	minioblob "github.com/hupe1980/probingpt/blobstore/minio"
	s3blob "github.com/hupe1980/probingpt/blobstore/s3"
)

// openStore resolves a location into a store and the object name inside it.
//
//	/data/pt.pbpt            local file
//	s3://bucket/dir/pt.pbpt  S3, credentials from the default AWS chain
//	minio://bucket/pt.pbpt   MinIO, endpoint and keys from the environment
func openStore(ctx context.Context, location string) (blobstore.Store, string, error) {
	scheme, rest, ok := strings.Cut(location, "://")
	if !ok {
		return blobstore.NewLocalStore(""), location, nil
	}

	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return nil, "", fmt.Errorf("invalid location %q: want %s://bucket/name", location, scheme)
	}
	prefix, name := path.Split(key)
	prefix = strings.TrimSuffix(prefix, "/")

	switch scheme {
	case "s3":
		s, err := s3blob.NewFromConfig(ctx, bucket, prefix)
		if err != nil {
			return nil, "", err
		}
		return s, name, nil
	case "minio":
		client, err := newMinioClient()
		if err != nil {
			return nil, "", err
		}
		return minioblob.NewStore(client, bucket, prefix), name, nil
	default:
		return nil, "", fmt.Errorf("unsupported scheme %q", scheme)
	}
}

func newMinioClient() (*minio.Client, error) {
	endpoint := os.Getenv("PROBINGPT_MINIO_ENDPOINT")
	if endpoint == "" {
		return nil, fmt.Errorf("PROBINGPT_MINIO_ENDPOINT is not set")
	}
	return minio.New(endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(
			os.Getenv("PROBINGPT_MINIO_ACCESS_KEY"),
			os.Getenv("PROBINGPT_MINIO_SECRET_KEY"),
			"",
		),
		Secure: os.Getenv("PROBINGPT_MINIO_INSECURE") == "",
	})
}
