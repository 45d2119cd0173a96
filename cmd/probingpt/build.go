package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/hupe1980/probingpt/index"
)

func runBuild(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	in := fs.String("in", "", "Moses text phrase table (.gz allowed); - for stdin")
	out := fs.String("out", "", "output index location")
	comp := fs.String("compression", "lz4", "block compression: none, lz4 or zstd")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		fs.Usage()
		return fmt.Errorf("-in and -out are required")
	}

	c, err := index.ParseCompression(*comp)
	if err != nil {
		return err
	}

	r, closeIn, err := openInput(*in)
	if err != nil {
		return err
	}
	defer closeIn()

	start := time.Now()
	b, err := index.ParseText(r, index.WithCompression(c))
	if err != nil {
		return err
	}
	data, err := b.Bytes()
	if err != nil {
		return err
	}

	store, name, err := openStore(ctx, *out)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, name, data); err != nil {
		return err
	}

	fmt.Printf("wrote %s: %d phrase pairs, %d scores, %d bytes, %s compression in %v\n",
		*out, b.Len(), b.NumScores(), len(data), c, time.Since(start).Round(time.Millisecond))
	return nil
}

func openInput(name string) (io.Reader, func(), error) {
	if name == "-" {
		return bufio.NewReader(os.Stdin), func() {}, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasSuffix(name, ".gz") {
		return bufio.NewReader(f), func() { _ = f.Close() }, nil
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return zr, func() {
		_ = zr.Close()
		_ = f.Close()
	}, nil
}
