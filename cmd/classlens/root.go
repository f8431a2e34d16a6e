package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "classlens",
		Short: "Class activity analysis and narrative report generation",
		Long: `classlens joins a class roster against an activity log, aggregates
per-student performance statistics, and drives a generative text service
to produce an annotated narrative report for every student.`,
		SilenceUsage: true,
	}

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the classlens version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("classlens", version)
		},
	})

	return root
}
