// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rubricheck/internal/pipeline"
)

var essayCmd = &cobra.Command{
	Use:   "essay",
	Short: "Inspect essay structuring",
}

var essayStructureCmd = &cobra.Command{
	Use:   "structure [file]",
	Short: "Structure an essay and print the result",
	Long: `Structure runs the deterministic structuring pass over an essay file:
paragraph splitting with stable offsets, section and quote detection,
chunk windows, readability metrics, and (unless disabled) PII redaction.
No grading happens; the output is the exact artifact the grader would
judge against.`,
	Args: cobra.ExactArgs(1),
	RunE: runEssayStructure,
}

func init() {
	essayStructureCmd.Flags().Bool("translate", false, "translate non-English essays")
	essayStructureCmd.Flags().Bool("no-redact", false, "disable PII redaction")

	essayCmd.AddCommand(essayStructureCmd)
	rootCmd.AddCommand(essayCmd)
}

func runEssayStructure(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading essay: %w", err)
	}

	cfg := pipelineConfig()
	if translate, _ := cmd.Flags().GetBool("translate"); translate {
		cfg.Structuring.TranslateNonEnglish = true
	}
	if noRedact, _ := cmd.Flags().GetBool("no-redact"); noRedact {
		cfg.Structuring.RedactPII = false
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	essay, err := p.StructureEssay(context.Background(), string(data))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(essay)
}
