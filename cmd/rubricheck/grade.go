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
	"github.com/pdiddy/rubricheck/pkg/types"
)

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Grade an essay against a rubric",
	Long: `Grade runs the full pipeline: normalizes the rubric, structures the
essay, judges every criterion concurrently, and prints the grade report.
Per-criterion progress goes to stderr; the report goes to stdout.

A criterion the model refuses or that fails repeatedly is reported as
refused; it never sinks the run or drags the score down.`,
	RunE: runGrade,
}

func init() {
	gradeCmd.Flags().String("rubric", "", "rubric file: canonical JSON/YAML or plain text (required)")
	gradeCmd.Flags().String("essay", "", "essay text file (required)")
	gradeCmd.Flags().Bool("raw-rubric", false, "treat the rubric file as prose even if it parses as JSON/YAML")
	gradeCmd.Flags().Bool("single-pass", false, "skip the second consistency pass")
	gradeCmd.Flags().Bool("translate", false, "translate non-English essays before grading")
	gradeCmd.Flags().Bool("no-redact", false, "disable PII redaction")
	gradeCmd.Flags().Bool("json", false, "output the report as JSON instead of YAML")
	gradeCmd.MarkFlagRequired("rubric")
	gradeCmd.MarkFlagRequired("essay")

	rootCmd.AddCommand(gradeCmd)
}

func runGrade(cmd *cobra.Command, args []string) error {
	rubricPath, _ := cmd.Flags().GetString("rubric")
	essayPath, _ := cmd.Flags().GetString("essay")

	rubricData, err := os.ReadFile(rubricPath)
	if err != nil {
		return fmt.Errorf("reading rubric: %w", err)
	}
	essayData, err := os.ReadFile(essayPath)
	if err != nil {
		return fmt.Errorf("reading essay: %w", err)
	}

	cfg := pipelineConfig()
	if singlePass, _ := cmd.Flags().GetBool("single-pass"); singlePass {
		cfg.Evaluation.SinglePass = true
	}
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

	src := rubric.DetectSource(rubricData)
	if raw, _ := cmd.Flags().GetBool("raw-rubric"); raw {
		src = rubric.TextSource(string(rubricData))
	}

	report, err := p.Evaluate(context.Background(), src, string(essayData), os.Stderr)
	if err != nil {
		return err
	}

	return writeReport(cmd, report)
}

func writeReport(cmd *cobra.Command, report *types.GradeReport) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	out, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
