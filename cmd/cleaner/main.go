// Command cleaner runs the cleaning pipeline once over a local file,
// driven by a YAML job description, and prints the cleaning report.
//
// The job file names the input and output paths and carries the
// cleaning configuration inline:
//
//	input_path: data/scores.csv
//	output_path: out/scores_cleaned.csv
//	missing:
//	  fill:
//	    score: median
//	split:
//	  enabled: true
//	  output_dir: out
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"cleanbot/internal/cleaning"
	"cleanbot/internal/dataprocessing"
	"cleanbot/internal/exporter"
	"cleanbot/internal/validation"
)

type job struct {
	InputPath  string          `yaml:"input_path"`
	OutputPath string          `yaml:"output_path"`
	Config     cleaning.Config `yaml:",inline"`
}

func main() {
	jobPath := flag.String("job", "job.yaml", "path to the YAML job file")
	flag.Parse()

	if err := run(*jobPath); err != nil {
		fmt.Fprintf(os.Stderr, "cleaner: %v\n", err)
		os.Exit(1)
	}
}

func run(jobPath string) error {
	data, err := os.ReadFile(jobPath)
	if err != nil {
		return fmt.Errorf("failed to read job file: %w", err)
	}
	var j job
	if err := yaml.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("failed to parse job file: %w", err)
	}
	if j.InputPath == "" {
		return fmt.Errorf("job file %s names no input_path", jobPath)
	}
	if err := validation.Struct(j.Config); err != nil {
		return fmt.Errorf("invalid cleaning config: %w", err)
	}

	raw, err := os.ReadFile(j.InputPath)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	table, err := dataprocessing.Parse(j.InputPath, raw)
	if err != nil {
		return err
	}

	pipeline := cleaning.NewPipeline(nil, nil)
	result, err := pipeline.Clean(context.Background(), table, &j.Config)
	if err != nil {
		return err
	}

	outPath := j.OutputPath
	if outPath == "" {
		ext := filepath.Ext(j.InputPath)
		outPath = strings.TrimSuffix(j.InputPath, ext) + "_cleaned.csv"
	}
	if err := writeCSVFile(outPath, result.Table); err != nil {
		return err
	}
	if result.Split != nil {
		if err := writeSplits(j, result); err != nil {
			return err
		}
	}

	fmt.Print(cleaning.RenderReport([]*cleaning.CleaningResult{result}))
	return nil
}

func writeSplits(j job, result *cleaning.CleaningResult) error {
	dir := filepath.Dir(j.InputPath)
	if j.Config.Split != nil && j.Config.Split.OutputDir != "" {
		dir = j.Config.Split.OutputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create split output dir: %w", err)
	}
	base := result.Table.Name
	parts := []struct {
		suffix string
		table  *cleaning.Table
	}{
		{"_train.csv", result.Split.Train},
		{"_val.csv", result.Split.Val},
		{"_test.csv", result.Split.Test},
	}
	for _, part := range parts {
		if err := writeCSVFile(filepath.Join(dir, base+part.suffix), part.table); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVFile(path string, t *cleaning.Table) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := exporter.WriteCSV(f, t, false); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
