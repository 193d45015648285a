// Command wsiinspect is a small operational CLI around the tile-size
// negotiator (C8): it answers "what tile size would this module adopt for
// a given request against a given file's smallest strip width" without
// needing a full TIFF-reader integration, and batch-checks a list of such
// requests against a JSON manifest.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/tilesize"
)

var (
	verbose bool
	logger  = log.New(os.Stderr, "wsiinspect: ", 0)
)

func main() {
	root := &cobra.Command{
		Use:   "wsiinspect",
		Short: "Inspect tile-size negotiation outcomes for WSI pyramid files",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log each negotiation")

	root.AddCommand(newTileSizeCmd())
	root.AddCommand(newBatchCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newTileSizeCmd() *cobra.Command {
	var requested, strip int
	var hasStrip bool

	cmd := &cobra.Command{
		Use:   "tile-size",
		Short: "Negotiate a single tile size against a smallest-strip width",
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := tilesize.Negotiate(requested, strip, hasStrip)
			if err != nil {
				return err
			}
			if verbose {
				logger.Printf("requested=%d strip=%d(present=%v) -> adopted=%dx%d", requested, strip, hasStrip, size.W, size.H)
			}
			fmt.Printf("%dx%d\n", size.W, size.H)
			return nil
		},
	}
	cmd.Flags().IntVar(&requested, "requested", 0, "requested tile width")
	cmd.Flags().IntVar(&strip, "smallest-strip", 0, "smallest strip width in the file")
	cmd.Flags().BoolVar(&hasStrip, "has-strip", false, "whether the file reports a smallest strip width")
	cmd.MarkFlagRequired("requested")
	return cmd
}

// negotiationRequest is one line of a batch manifest: a (requested,
// smallest-strip) pair to resolve.
type negotiationRequest struct {
	Requested     int  `json:"requested"`
	SmallestStrip int  `json:"smallest_strip"`
	HasStrip      bool `json:"has_strip"`
}

type negotiationResult struct {
	Request negotiationRequest `json:"request"`
	Adopted *geom.Size          `json:"adopted,omitempty"`
	Error   string              `json:"error,omitempty"`
}

func newBatchCmd() *cobra.Command {
	var manifestPath string
	var workers int

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Negotiate tile sizes for every entry in a JSON manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(manifestPath)
			if err != nil {
				return err
			}
			var requests []negotiationRequest
			if err := json.Unmarshal(data, &requests); err != nil {
				return fmt.Errorf("parsing manifest: %w", err)
			}

			results := make([]negotiationResult, len(requests))
			bar := newProgressBar("negotiate", int64(len(requests)))

			jobs := make(chan int)
			var wg sync.WaitGroup
			for w := 0; w < max(1, workers); w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := range jobs {
						req := requests[i]
						size, err := tilesize.Negotiate(req.Requested, req.SmallestStrip, req.HasStrip)
						res := negotiationResult{Request: req}
						if err != nil {
							res.Error = err.Error()
						} else {
							res.Adopted = &size
						}
						results[i] = res
						bar.Increment()
					}
				}()
			}
			for i := range requests {
				jobs <- i
			}
			close(jobs)
			wg.Wait()
			bar.Finish()

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "path to a JSON array of negotiation requests")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent negotiation workers")
	cmd.MarkFlagRequired("manifest")
	return cmd
}
