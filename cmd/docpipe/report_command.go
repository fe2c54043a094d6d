package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"docpipe/internal/appetite"
	"docpipe/internal/store"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show recent submissions with type, decision, and risk score",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			submissions, err := store.OpenSubmissionStore(cfg.DatabasePath("submission"))
			if err != nil {
				return err
			}
			defer submissions.Close()

			records, err := submissions.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No submissions recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					shortID(rec.SubmissionID),
					documentTypeLabel(rec.DocumentType),
					decisionLabel(rec.AppetiteData),
					riskLabel(rec.RiskScore),
					rec.Status,
					rec.Timestamp.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{header: "SUBMISSION"},
				{header: "TYPE"},
				{header: "DECISION"},
				{header: "RISK", rightAlign: true},
				{header: "STATUS"},
				{header: "TIMESTAMP"},
			}, rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of submissions to show")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func documentTypeLabel(documentType string) string {
	if documentType == "" {
		return "-"
	}
	label := strings.ReplaceAll(documentType, "_", " ")
	return cases.Title(language.Und).String(label)
}

func decisionLabel(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "-"
	}
	var decision appetite.Decision
	if err := json.Unmarshal(raw, &decision); err != nil || decision.Decision == "" {
		return "-"
	}
	return decision.Decision
}

func riskLabel(riskScore *float64) string {
	if riskScore == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *riskScore)
}
