package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/ieltsmeta/internal/prompts/task1"
	"github.com/jackzampolin/ieltsmeta/internal/schema"
	"github.com/jackzampolin/ieltsmeta/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ieltsmeta %s\n", version.GitRelease)
		fmt.Printf("  Go:     %s\n", version.GoInfo)
		fmt.Printf("  Commit: %s\n", version.GitCommit)
		fmt.Printf("  Date:   %s\n", version.GitCommitDate)
		fmt.Printf("  Schema: %s\n", schema.Version)
		fmt.Printf("  Prompt: %s\n", task1.SystemPromptHash()[:12])
	},
}
