package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hupe1980/probingpt/index"
)

func runInfo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	loc := fs.String("index", "", "index location")
	vocab := fs.Bool("vocab", false, "also print both vocabularies")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *loc == "" {
		fs.Usage()
		return fmt.Errorf("-index is required")
	}

	store, name, err := openStore(ctx, *loc)
	if err != nil {
		return err
	}
	r, err := index.Open(ctx, store, name)
	if err != nil {
		return err
	}
	defer r.Close()

	s := r.Stats()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "location\t%s\n", *loc)
	fmt.Fprintf(w, "size\t%d bytes\n", s.SizeBytes)
	fmt.Fprintf(w, "memory-mapped\t%t\n", s.Mapped)
	fmt.Fprintf(w, "compression\t%s\n", s.Compression)
	fmt.Fprintf(w, "scores per record\t%d\n", s.NumScores)
	fmt.Fprintf(w, "source phrases\t%d\n", s.Phrases)
	fmt.Fprintf(w, "source words\t%d\n", s.SourceWords)
	fmt.Fprintf(w, "target words\t%d\n", s.TargetWords)
	if err := w.Flush(); err != nil {
		return err
	}

	if *vocab {
		for _, sw := range r.SourceVocabulary() {
			fmt.Printf("S\t%d\t%s\n", sw.ID, sw.Text)
		}
		for _, tw := range r.TargetVocabulary() {
			fmt.Printf("T\t%d\t%s\n", tw.ID, tw.Text)
		}
	}
	return nil
}
