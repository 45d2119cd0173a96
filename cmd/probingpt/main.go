// Command probingpt builds, inspects and queries phrase-table index files.
//
//	probingpt build -in phrase-table.txt -out pt.pbpt -compression zstd
//	probingpt info  -index pt.pbpt
//	echo "le chat" | probingpt query -index pt.pbpt -limit 5
//
// Index files can live on local disk, in S3 (s3://bucket/prefix/name) or
// in MinIO (minio://bucket/prefix/name, with PROBINGPT_MINIO_ENDPOINT,
// PROBINGPT_MINIO_ACCESS_KEY and PROBINGPT_MINIO_SECRET_KEY set).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: probingpt <command> [flags]

commands:
  build   convert a Moses text phrase table into an index file
  info    print index statistics
  query   look up source phrases read from stdin
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(ctx, os.Args[2:])
	case "info":
		err = runInfo(ctx, os.Args[2:])
	case "query":
		err = runQuery(ctx, os.Args[2:], os.Stdin, os.Stdout)
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "probingpt %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}
