package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"aegis-hq/aegis/pkg/policy"
)

var validateFlags struct {
	file   string
	dir    string
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate policy files",
	Long: `Validate Aegis policy files for syntax and schema errors.

The validate command parses policy YAML and checks the full schema:
  - Required fields (name, conditions, actions)
  - Condition, action, and severity enum membership
  - Regex pattern compilation
  - PII detector names
  - Threshold ordering (warning below action, both in [0,1])

Examples:
  # Validate a single file
  aegis validate --file policy.yaml

  # Validate a directory
  aegis validate --dir policies/

  # JSON output for CI
  aegis validate --dir policies/ --format json`,
	RunE: validatePolicies,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.file, "file", "f", "", "policy file to validate")
	validateCmd.Flags().StringVarP(&validateFlags.dir, "dir", "d", "", "directory of policy files")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

// validationResult is the validation outcome for one policy file.
type validationResult struct {
	File   string `json:"file"`
	Valid  bool   `json:"valid"`
	Policy string `json:"policy,omitempty"`
	Field  string `json:"field,omitempty"`
	Error  string `json:"error,omitempty"`
}

func validatePolicies(cmd *cobra.Command, args []string) error {
	if validateFlags.file == "" && validateFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string
	if validateFlags.file != "" {
		files = append(files, validateFlags.file)
	}
	if validateFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(validateFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list policy files: %w", err)
			}
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no policy files found")
	}

	results := make([]validationResult, 0, len(files))
	for _, file := range files {
		results = append(results, validatePolicyFile(file))
	}

	if validateFlags.format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
	} else {
		for _, result := range results {
			if result.Valid {
				fmt.Printf("✓ %s (%s)\n", result.File, result.Policy)
				continue
			}
			fmt.Printf("✗ %s: %s\n", result.File, result.Error)
		}
	}

	for _, result := range results {
		if !result.Valid {
			return fmt.Errorf("validation failed")
		}
	}
	return nil
}

func validatePolicyFile(path string) validationResult {
	result := validationResult{File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	p, err := policy.ParsePolicy(data)
	if err != nil {
		result.Error = err.Error()
		var cfgErr *policy.ConfigurationError
		if errors.As(err, &cfgErr) {
			result.Policy = cfgErr.Policy
			result.Field = cfgErr.Field
		}
		return result
	}

	result.Valid = true
	result.Policy = p.Name
	return result
}
