package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/futig/knowledge-console/internal/entity"
	"github.com/futig/knowledge-console/internal/pkg/render"
	"github.com/futig/knowledge-console/internal/pkg/validator"
	"github.com/futig/knowledge-console/internal/usecase/ingest"
	"github.com/futig/knowledge-console/internal/watcher"
	"github.com/spf13/cobra"
)

const statusDocumentLimit = 20

var (
	flagMaxChunkTokens int
	flagOverlap        int
	flagStatusWatch    bool
	flagStatusAll      bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Ask the backend to ingest files or directories it can read",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := deps.Ingest.IngestByPath(cmd.Context(), args, chunkingOptions(cmd)...)
		if err != nil {
			return err
		}
		printStatusResponse(cmd.OutOrStdout(), "Ingestion", resp)
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload local documents to the index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := readFiles(args)
		if err != nil {
			return err
		}
		return upload(cmd.Context(), cmd.OutOrStdout(), deps, files, chunkingOptions(cmd)...)
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the index from scratch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := deps.Ingest.Rebuild(cmd.Context())
		if err != nil {
			return err
		}
		printStatusResponse(cmd.OutOrStdout(), "Rebuild", resp)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index totals and recently added documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit := statusDocumentLimit
		if flagStatusAll {
			limit = 0
		}

		if !flagStatusWatch {
			status, err := deps.Ingest.GetStatus(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.StatusText(status, limit))
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return watchStatus(ctx, cmd.OutOrStdout(), deps.Ingest, deps.Config.IngestCfg.PollInterval, limit)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Upload documents dropped into a folder until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		w := watcher.New(args[0], deps.Config.IngestCfg.BatchWindow, deps.Ingest, deps.Validator, deps.Logger)
		w.OnBatch = func(files []string, resp *entity.IngestUploadResponse, err error) {
			if err != nil {
				printError(out, err)
				return
			}
			printUploadResult(out, resp, len(files), nil)
		}

		fmt.Fprintln(out, dimStyle.Render("Watching "+args[0]+" (Ctrl+C to stop)"))
		return w.Run(ctx)
	},
}

func init() {
	for _, c := range []*cobra.Command{ingestCmd, uploadCmd} {
		c.Flags().IntVar(&flagMaxChunkTokens, "max-chunk-tokens", 0, "chunk size in tokens (default from INGEST_MAX_CHUNK_TOKENS)")
		c.Flags().IntVar(&flagOverlap, "overlap", 0, "chunk overlap in tokens (default from INGEST_OVERLAP)")
	}
	statusCmd.Flags().BoolVarP(&flagStatusWatch, "watch", "w", false, "keep refreshing until interrupted")
	statusCmd.Flags().BoolVar(&flagStatusAll, "all", false, "list every document")

	rootCmd.AddCommand(ingestCmd, uploadCmd, rebuildCmd, statusCmd, watchCmd)
}

// chunkingOptions forwards chunk parameters only when given on the command line.
func chunkingOptions(cmd *cobra.Command) []ingest.Option {
	if !cmd.Flags().Changed("max-chunk-tokens") && !cmd.Flags().Changed("overlap") {
		return nil
	}

	maxTokens := deps.Config.IngestCfg.MaxChunkTokens
	if cmd.Flags().Changed("max-chunk-tokens") {
		maxTokens = flagMaxChunkTokens
	}
	overlap := deps.Config.IngestCfg.Overlap
	if cmd.Flags().Changed("overlap") {
		overlap = flagOverlap
	}
	return []ingest.Option{ingest.WithChunking(maxTokens, overlap)}
}

func readFiles(paths []string) ([]entity.FileData, error) {
	files := make([]entity.FileData, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, entity.FileData{
			Filename: filepath.Base(p),
			Content:  data,
		})
	}
	return files, nil
}

// upload drops unsupported files, checks the limits and sends the rest as one batch.
func upload(ctx context.Context, out io.Writer, d *Deps, files []entity.FileData, opts ...ingest.Option) error {
	kept, rejected := validator.FilterSupportedFiles(files)
	if len(kept) > 0 {
		if err := d.Validator.ValidateUpload(kept); err != nil {
			return err
		}
	}

	resp, err := d.Ingest.IngestUpload(ctx, kept, opts...)
	if err != nil {
		for _, name := range rejected {
			fmt.Fprintln(out, warnStyle.Render("skipped unsupported file: "+name))
		}
		return err
	}
	printUploadResult(out, resp, len(kept), rejected)
	return nil
}

// watchStatus holds a poller lease and prints the cached status whenever it
// changes. Polling stops when ctx ends.
func watchStatus(ctx context.Context, out io.Writer, client IngestClient, interval time.Duration, limit int) error {
	release := client.Poller().Acquire()
	defer release()

	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	var last string
	for {
		if status, ok := client.CachedStatus(); ok {
			if text := render.StatusText(status, limit); text != last {
				fmt.Fprintf(out, "%s\n%s\n\n", dimStyle.Render(time.Now().Format(time.TimeOnly)), text)
				last = text
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func printStatusResponse(out io.Writer, what string, resp *entity.StatusResponse) {
	line := fmt.Sprintf("%s: %s", what, resp.Status)
	if resp.Message != "" {
		line += " - " + resp.Message
	}
	style := successStyle
	if resp.Status != entity.IngestStatusOK {
		style = warnStyle
	}
	fmt.Fprintln(out, style.Render(line))
}
