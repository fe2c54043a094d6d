package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"docpipe/internal/config"
	"docpipe/internal/pipeline"
	"docpipe/internal/queue"
	"docpipe/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue depths and store counts per stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			stages := []struct {
				name      string
				queueName string
				prefix    string
			}{
				{"ingestion", pipeline.QueueIngestion, queue.PrefixRequest},
				{"recognition", pipeline.QueueRecognition, queue.PrefixIngested},
				{"classification", pipeline.QueueClassification, queue.PrefixRecognized},
				{"extraction", pipeline.QueueExtraction, queue.PrefixClassified},
				{"matching", pipeline.QueueMatching, queue.PrefixExtracted},
			}

			records, err := stageRecordCounts(runCtx, cfg)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(stages))
			for _, s := range stages {
				q, err := queue.Open(cfg.QueuePath(s.queueName), cfg.Workflow.MaxAttempts)
				if err != nil {
					return fmt.Errorf("open %s queue: %w", s.queueName, err)
				}
				pending, err := q.Len(s.prefix)
				if err != nil {
					return fmt.Errorf("scan %s queue: %w", s.queueName, err)
				}
				dead, err := q.DeadLetterLen()
				if err != nil {
					return fmt.Errorf("scan %s dead letters: %w", s.queueName, err)
				}
				rows = append(rows, []string{
					s.name,
					strconv.Itoa(pending),
					strconv.Itoa(dead),
					strconv.Itoa(records[s.name]),
				})
			}

			printSection(out, "Pipeline", colorize)
			fmt.Fprintln(out, renderTable([]column{
				{header: "STAGE"},
				{header: "PENDING", rightAlign: true},
				{header: "DEAD-LETTERED", rightAlign: true},
				{header: "RECORDS", rightAlign: true},
			}, rows))

			reportQueue, err := queue.Open(cfg.Paths.ReportDir, cfg.Workflow.MaxAttempts)
			if err != nil {
				return fmt.Errorf("open report queue: %w", err)
			}
			reports, err := reportQueue.Len(queue.PrefixProcessed)
			if err != nil {
				return fmt.Errorf("scan reports: %w", err)
			}
			fmt.Fprintf(out, "\nReports: %d processed submission files in %s\n", reports, cfg.Paths.ReportDir)

			statusCounts, err := submissionStatusCounts(runCtx, cfg)
			if err != nil {
				return err
			}
			if len(statusCounts) > 0 {
				statusRows := make([][]string, 0, len(statusCounts))
				names := make([]string, 0, len(statusCounts))
				for name := range statusCounts {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					statusRows = append(statusRows, []string{name, strconv.Itoa(statusCounts[name])})
				}
				printSection(out, "Submissions", colorize)
				fmt.Fprintln(out, renderTable([]column{
					{header: "STATUS"},
					{header: "COUNT", rightAlign: true},
				}, statusRows))
			}
			return nil
		},
	}
}

func stageRecordCounts(ctx context.Context, cfg *config.Config) (map[string]int, error) {
	counts := make(map[string]int, 5)

	ingestion, err := store.OpenIngestionStore(cfg.DatabasePath("ingestion"))
	if err != nil {
		return nil, err
	}
	defer ingestion.Close()
	if counts["ingestion"], err = ingestion.Count(ctx); err != nil {
		return nil, err
	}

	recognition, err := store.OpenRecognitionStore(cfg.DatabasePath("recognition"))
	if err != nil {
		return nil, err
	}
	defer recognition.Close()
	if counts["recognition"], err = recognition.Count(ctx); err != nil {
		return nil, err
	}

	classification, err := store.OpenClassificationStore(cfg.DatabasePath("classification"))
	if err != nil {
		return nil, err
	}
	defer classification.Close()
	if counts["classification"], err = classification.Count(ctx); err != nil {
		return nil, err
	}

	submission, err := store.OpenSubmissionStore(cfg.DatabasePath("submission"))
	if err != nil {
		return nil, err
	}
	defer submission.Close()
	if counts["extraction"], err = submission.Count(ctx); err != nil {
		return nil, err
	}
	byStatus, err := submission.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	counts["matching"] = byStatus["processed"]

	return counts, nil
}

func submissionStatusCounts(ctx context.Context, cfg *config.Config) (map[string]int, error) {
	submission, err := store.OpenSubmissionStore(cfg.DatabasePath("submission"))
	if err != nil {
		return nil, err
	}
	defer submission.Close()
	return submission.CountByStatus(ctx)
}
