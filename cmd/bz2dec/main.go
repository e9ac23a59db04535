// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"

	"cloudeng.io/cmdutil"
	"cloudeng.io/errors"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cenkalti/backoff/v3"
	"github.com/cosnicolaou/bz2dec"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"
	"golang.org/x/sync/errgroup"
)

// verbose gates the trace-level logging the core decoder itself never
// performs (internal/bzip2 is silent; only this CLI layer logs, per
// the logging design).
var verbose bool

func init() {
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

func main() {
	root := &cobra.Command{
		Use:   "bz2dec",
		Short: "decompress and inspect bzip2 files; files may be local, on S3, or a URL",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose debug/trace information")

	var concurrency int
	root.PersistentFlags().IntVar(&concurrency, "concurrency", runtime.GOMAXPROCS(-1),
		"number of input files cat opens concurrently (decoding runs one file at a time)")

	root.AddCommand(catCmd(&concurrency), unzipCmd(), statsCmd(&concurrency))

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func catCmd(concurrency *int) *cobra.Command {
	return &cobra.Command{
		Use:   "cat [files...]",
		Short: "decompress bzip2 files or stdin to stdout",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			cmdutil.HandleSignals(cancel, os.Interrupt)

			if len(args) == 0 {
				rd, err := bz2dec.NewReader(os.Stdin)
				if err != nil {
					return err
				}
				_, err = io.Copy(os.Stdout, rd)
				return err
			}

			// Independent files are opened and their stream headers
			// parsed concurrently; decoding runs inside the io.Copy that
			// holds out, so files are decoded one at a time. Nothing here
			// ever decodes two blocks of the *same* stream at once.
			var out sync.Mutex
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(*concurrency)
			for _, name := range args {
				name := name
				g.Go(func() error {
					rd, cleanup, err := openInput(gctx, name)
					if err != nil {
						return err
					}
					defer cleanup(gctx)
					bzrd, err := bz2dec.NewReader(rd)
					if err != nil {
						return err
					}
					out.Lock()
					_, err = io.Copy(os.Stdout, bzrd)
					out.Unlock()
					return err
				})
			}
			return g.Wait()
		},
	}
}

func unzipCmd() *cobra.Command {
	var (
		outputFile string
		showBar    bool
	)
	cmd := &cobra.Command{
		Use:   "unzip <file>",
		Short: "decompress a single bzip2 file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			cmdutil.HandleSignals(cancel, os.Interrupt)

			rd, cleanup, err := openInput(ctx, args[0])
			if err != nil {
				return err
			}
			defer cleanup(ctx)

			wr, writerCleanup, err := createOutput(ctx, outputFile)
			if err != nil {
				return err
			}

			isTTY := terminal.IsTerminal(int(os.Stdout.Fd()))
			var (
				progressWg sync.WaitGroup
				updates    chan bz2dec.Progress
			)
			opts := []bz2dec.ReaderOption{}
			if showBar && (len(outputFile) > 0 || !isTTY) {
				updates = make(chan bz2dec.Progress, 16)
				opts = append(opts, bz2dec.SendUpdates(updates))
			}

			bzrd, err := bz2dec.NewReader(rd, opts...)
			if err != nil {
				return err
			}

			if updates != nil {
				barWr := os.Stdout
				if !isTTY {
					barWr = os.Stderr
				}
				progressWg.Add(1)
				go func() {
					defer progressWg.Done()
					runProgressBar(ctx, barWr, updates)
				}()
			}

			errs := &errors.M{}
			_, err = io.Copy(wr, bzrd)
			errs.Append(err)
			errs.Append(writerCleanup(ctx))

			if updates != nil {
				close(updates)
				progressWg.Wait()
			}
			return errs.Err()
		},
	}
	cmd.Flags().StringVar(&outputFile, "output", "", "output file or s3 path, omit for stdout")
	cmd.Flags().BoolVar(&showBar, "progress", true, "display a progress bar")
	return cmd
}

func statsCmd(concurrency *int) *cobra.Command {
	return &cobra.Command{
		Use:   "scan-stats [files...]",
		Short: "scan bzip2 files reporting per-block CRCs; intended for debugging",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			cmdutil.HandleSignals(cancel, os.Interrupt)
			errs := &errors.M{}
			for _, name := range args {
				errs.Append(statsFile(ctx, name))
			}
			return errs.Err()
		},
	}
}

func statsFile(ctx context.Context, name string) error {
	rd, cleanup, err := openInput(ctx, name)
	if err != nil {
		return err
	}
	defer cleanup(ctx)

	var stats bz2dec.Stats
	bzrd, err := bz2dec.NewReader(rd, bz2dec.CollectStats(&stats))
	if err != nil {
		return err
	}
	if _, err := io.Copy(io.Discard, bzrd); err != nil {
		return fmt.Errorf("failed to read %v: %w", name, err)
	}
	fmt.Printf("=== %v ===\n", name)
	fmt.Printf("Block, CRC\n")
	for i, crc := range stats.BlockCRCs {
		fmt.Printf("% 12d   : %#08x\n", i+1, crc)
	}
	fmt.Printf("Stream CRC      : %#08x\n", stats.StreamCRC)
	return nil
}

func runProgressBar(ctx context.Context, wr io.Writer, ch <-chan bz2dec.Progress) {
	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(wr),
		progressbar.OptionSetPredictTime(true))
	bar.RenderBlank()
	next := 1
	for {
		select {
		case p, ok := <-ch:
			if !ok {
				fmt.Fprintf(wr, "\n")
				return
			}
			bar.Add64(p.Compressed)
			if verbose && p.Block != next {
				log.Printf("out of sequence block %#v\n", p)
			}
			next++
		case <-ctx.Done():
			return
		}
	}
}

// openInput opens name as a byte source: local path, s3:// path, or
// http(s):// URL. HTTP acquisition is retried with exponential backoff
// since it is the one transient-failure-prone step in scope; resuming
// mid-stream would require seeking, which this decoder does not
// support.
func openInput(ctx context.Context, name string) (io.Reader, func(context.Context) error, error) {
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		var resp *http.Response
		op := func() error {
			r, err := http.Get(name)
			if err != nil {
				return err
			}
			resp = r
			return nil
		}
		bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
		if err := backoff.Retry(op, bo); err != nil {
			return nil, nil, err
		}
		return resp.Body, func(context.Context) error { return resp.Body.Close() }, nil
	}
	f, err := file.Open(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return f.Reader(ctx), f.Close, nil
}

func createOutput(ctx context.Context, name string) (io.Writer, func(context.Context) error, error) {
	if len(name) == 0 {
		return os.Stdout, func(context.Context) error { return nil }, nil
	}
	f, err := file.Create(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return f.Writer(ctx), f.Close, nil
}
