package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docpipe/internal/ingest"
	"docpipe/internal/pipeline"
	"docpipe/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <file>...",
		Short: "Submit documents to the processing pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			q, err := queue.Open(cfg.QueuePath(pipeline.QueueIngestion), cfg.Workflow.MaxAttempts)
			if err != nil {
				return fmt.Errorf("open ingestion queue: %w", err)
			}
			submitter := ingest.NewSubmitter(q, "api")

			out := cmd.OutOrStdout()
			for _, arg := range args {
				absPath, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve path: %w", err)
				}
				info, err := os.Stat(absPath)
				if err != nil {
					if errors.Is(err, os.ErrNotExist) {
						return fmt.Errorf("file does not exist: %s", absPath)
					}
					return fmt.Errorf("inspect file: %w", err)
				}
				if info.IsDir() {
					return fmt.Errorf("%s is a directory", absPath)
				}

				processingID, err := submitter.Submit(absPath)
				if err != nil {
					return fmt.Errorf("submit %s: %w", absPath, err)
				}
				fmt.Fprintf(out, "Submitted %s as %s\n", filepath.Base(absPath), processingID)
			}
			return nil
		},
	}
}
