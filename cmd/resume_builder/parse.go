package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type parseOptions struct {
	out         string
	concurrency int
}

func newParseCmd(a *app) *cobra.Command {
	var opts parseOptions

	cmd := &cobra.Command{
		Use:   "parse <resume.pdf> [more.pdf...]",
		Short: "Parse PDF resumes into structured resume records",
		Long: `Extracts the text of each PDF and asks the model for a structured resume record.

A single file prints the record as JSON. Several files are parsed concurrently and
print a JSON object mapping each file name to its result.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runParse(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 0, "Files parsed at once (default from config)")

	return cmd
}

func (a *app) runParse(cmd *cobra.Command, args []string, opts parseOptions) error {
	docs := make(map[string][]byte, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read resume file: %w", err)
		}
		docs[filepath.Base(path)] = data
	}
	if len(docs) != len(args) {
		return fmt.Errorf("resume file names must be unique")
	}

	rt, err := a.setup(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.close()

	svc := rt.service()

	if len(args) == 1 {
		name := filepath.Base(args[0])
		record, err := svc.ParseResume(cmd.Context(), docs[name])
		if err != nil {
			rt.printFailure(name, err)
			return err
		}
		if rt.cfg.Verbose {
			rt.printer.PrintResume(name, record)
		}
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal resume: %w", err)
		}
		return a.writeOutput(opts.out, data)
	}

	limit := opts.concurrency
	if limit == 0 {
		limit = rt.cfg.Concurrency
	}
	results := svc.ParseResumes(cmd.Context(), docs, limit)

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var failed int
	for _, name := range names {
		result := results[name]
		if !result.Success {
			failed++
			if rt.cfg.Verbose {
				rt.printer.PrintFailure(name, fmt.Sprintf("%s (%s)", result.Error, result.Kind), "")
			}
			continue
		}
		if rt.cfg.Verbose {
			rt.printer.PrintResume(name, result.Data)
		}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := a.writeOutput(opts.out, data); err != nil {
		return err
	}

	rt.logger.WithFields(logrus.Fields{"parsed": len(results) - failed, "failed": failed}).Info("batch parse finished")
	if failed > 0 {
		return fmt.Errorf("%d of %d resumes failed to parse", failed, len(results))
	}
	return nil
}
