// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the rubricheck CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/rubricheck/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, else the named secret.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the rubricheck CLI.
var rootCmd = &cobra.Command{
	Use:   "rubricheck",
	Short: "Rubric-based AI essay grading",
	Long: `rubricheck grades essays against rubrics using a language model. A rubric
(structured JSON/YAML or pasted prose) is normalized once, the essay is
structured into paragraphs with stable offsets, and every criterion is
judged independently with verbatim evidence, a consistency check, and
tie-break arbitration. Results aggregate into a weighted score, a letter
grade, and per-criterion feedback.

Each stage is also exposed as its own subcommand: "rubric parse" and
"essay structure" emit intermediate artifacts, "grade" runs the full
pipeline.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./rubricheck.yaml or ~/.config/rubricheck/config.yaml)")
	rootCmd.PersistentFlags().String("model", "gpt-4o-mini", "inference model identifier")
	rootCmd.PersistentFlags().String("api-key", "", "inference API key (default: .secrets/openai-api-key or RUBRICHECK_API_KEY)")
	rootCmd.PersistentFlags().String("base-url", "", "override the inference API endpoint")
	rootCmd.PersistentFlags().String("cache", "", "SQLite cache path (empty disables caching)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("rubricheck")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "rubricheck"))
		}
	}

	viper.SetEnvPrefix("RUBRICHECK")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
