package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stephabauva/archdrift/internal/codebase"
)

var indexJSON bool

var indexCmd = &cobra.Command{
	Use:   "index [root]",
	Short: "Build and summarize the codebase index",
	Long: `Index scans the codebase the same way audit does and prints what the
scanner found: how many files were indexed, the component type
breakdown, and how many API routes were registered.

Useful for checking scanner coverage before writing system maps.

Examples:
  archdrift index              # summarize the working directory
  archdrift index ../shop --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "Output the summary as JSON")
}

// indexSummary is what index reports about one scan.
type indexSummary struct {
	Root string `json:"root"`
	codebase.Summary
}

func runIndex(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	scanner := codebase.NewScanner(root, codebase.NewRegexExtractor())
	scanner.SetDebugLog(debugLogf())
	cfg.Scan.ApplyTo(scanner)
	cb, err := scanner.Scan()
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}

	summary := buildIndexSummary(root, cb)
	if indexJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}

	printIndexSummary(summary)
	return nil
}

// buildIndexSummary reduces a scanned index to its counts.
func buildIndexSummary(root string, cb *codebase.ParsedCodebase) indexSummary {
	return indexSummary{Root: root, Summary: codebase.Summarize(cb)}
}

// printIndexSummary renders the summary for humans.
func printIndexSummary(s indexSummary) {
	fmt.Printf("Indexed %d files under %s\n", s.Files, s.Root)
	for _, t := range s.TypeOrder {
		fmt.Printf("  %-10s %d\n", t, s.ByType[t])
	}
	fmt.Printf("Registered API routes: %d\n", s.Routes)
}
