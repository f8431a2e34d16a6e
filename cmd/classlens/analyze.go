package main

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"classlens/internal/config"
	"classlens/internal/llm"
	"classlens/internal/logging"
	"classlens/internal/roster"
	"classlens/internal/session"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		configPath   string
		rosterPath   string
		activityPath string
		outputPath   string
		batchSize    int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a roster and activity log and generate the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if batchSize > 0 {
				cfg.Analysis.BatchSize = batchSize
			}

			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			defer logger.Sync()

			rosterRows, err := readTable(rosterPath)
			if err != nil {
				return fmt.Errorf("failed to read roster: %w", err)
			}
			activityRows, err := readTable(activityPath)
			if err != nil {
				return fmt.Errorf("failed to read activity log: %w", err)
			}

			ctx := cmd.Context()
			client, err := llm.NewFromConfig(ctx, cfg.LLM)
			if err != nil {
				return err
			}

			rep, err := session.New(cfg, client, logger).Run(ctx, rosterRows, activityRows)
			if err != nil {
				return err
			}

			data, err := rep.JSON()
			if err != nil {
				return err
			}
			if outputPath == "" {
				fmt.Println(string(data))
				return nil
			}
			return os.WriteFile(outputPath, data, 0o644)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config YAML")
	cmd.Flags().StringVar(&rosterPath, "roster", "", "path to the roster CSV")
	cmd.Flags().StringVar(&activityPath, "activity", "", "path to the activity log CSV")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the report JSON here instead of stdout")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "override the configured batch size")
	cmd.MarkFlagRequired("roster")
	cmd.MarkFlagRequired("activity")

	return cmd
}

// readTable decodes a CSV file into raw rows, first line as header.
// Spreadsheet decoding is a collaborator of the analysis core, which
// only ever sees decoded rows.
func readTable(path string) ([]roster.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]roster.RawRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(roster.RawRow, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
