// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/rubricheck/internal/pipeline"
	"github.com/pdiddy/rubricheck/internal/rubric"
)

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Inspect and normalize rubrics",
}

var rubricParseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Normalize a rubric and print its canonical form",
	Long: `Parse converts a rubric file into the canonical form the grader uses.
Structured JSON/YAML validates directly; prose rubrics go through the
inference service. The output includes the parse confidence and any
normalization warnings.`,
	Args: cobra.ExactArgs(1),
	RunE: runRubricParse,
}

func init() {
	rubricParseCmd.Flags().Bool("raw", false, "treat the file as prose even if it parses as JSON/YAML")
	rubricParseCmd.Flags().Bool("json", false, "output as JSON instead of YAML")

	rubricCmd.AddCommand(rubricParseCmd)
	rootCmd.AddCommand(rubricCmd)
}

func runRubricParse(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading rubric: %w", err)
	}

	p, err := pipeline.New(pipelineConfig())
	if err != nil {
		return err
	}
	defer p.Close()

	src := rubric.DetectSource(data)
	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		src = rubric.TextSource(string(data))
	}

	canonical, err := p.ParseRubric(context.Background(), src)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(canonical)
	}
	out, err := yaml.Marshal(canonical)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
