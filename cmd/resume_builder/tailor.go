package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-builder/internal/ingestion"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/types"
)

type tailorOptions struct {
	resumePath string
	jobPath    string
	jobURL     string
	out        string
	jobMeta    string
	useBrowser bool
}

func newTailorCmd(a *app) *cobra.Command {
	var opts tailorOptions

	cmd := &cobra.Command{
		Use:   "tailor",
		Short: "Rewrite a resume record toward a job description",
		Long: `Reads a resume record produced by "parse" and a job description, from a file
or a posting URL, and prints the tailored resume record as JSON.`,
		Example: `  resume_builder tailor --resume resume.json --job job.txt
  resume_builder tailor --resume resume.json --job-url https://jobs.example.com/123 --use-browser
  resume_builder tailor --resume resume.json --job job.txt --job-meta job.meta.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTailor(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.resumePath, "resume", "r", "", "Path to resume record JSON (required)")
	cmd.Flags().StringVarP(&opts.jobPath, "job", "j", "", "Path to job description text file")
	cmd.Flags().StringVar(&opts.jobURL, "job-url", "", "URL of the job posting")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&opts.jobMeta, "job-meta", "", "Write job description source metadata JSON to this file")
	cmd.Flags().BoolVar(&opts.useBrowser, "use-browser", false, "Use headless browser for SPA job postings")

	_ = cmd.MarkFlagRequired("resume")
	cmd.MarkFlagsMutuallyExclusive("job", "job-url")
	cmd.MarkFlagsOneRequired("job", "job-url")

	return cmd
}

func (a *app) runTailor(cmd *cobra.Command, opts tailorOptions) error {
	content, err := os.ReadFile(opts.resumePath)
	if err != nil {
		return fmt.Errorf("failed to read resume file: %w", err)
	}
	if err := schemas.ValidateResume(string(content)); err != nil {
		return fmt.Errorf("resume does not match the resume schema: %w", err)
	}
	var record types.ResumeRecord
	if err := json.Unmarshal(content, &record); err != nil {
		return fmt.Errorf("failed to parse resume JSON: %w", err)
	}

	rt, err := a.setup(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.close()

	var (
		jobDescription string
		jobMeta        *ingestion.Metadata
	)
	if opts.jobURL != "" {
		text, meta, err := ingestion.IngestFromURL(cmd.Context(), opts.jobURL, ingestion.URLOptions{
			UseBrowser: opts.useBrowser || rt.cfg.UseBrowser,
			Logger:     rt.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to fetch job description: %w", err)
		}
		rt.logger.WithField("url", meta.URL).WithField("hash", meta.Hash).Debug("fetched job posting")
		jobDescription, jobMeta = text, meta
	} else {
		text, meta, err := ingestion.IngestFromFile(opts.jobPath)
		if err != nil {
			return fmt.Errorf("failed to read job description: %w", err)
		}
		jobDescription, jobMeta = text, meta
	}
	if opts.jobMeta != "" {
		metaJSON, err := jobMeta.ToJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.jobMeta, metaJSON, 0644); err != nil {
			return fmt.Errorf("failed to write job metadata: %w", err)
		}
	}

	tailored, err := rt.service().TailorResume(cmd.Context(), &record, jobDescription)
	if err != nil {
		rt.printFailure(opts.resumePath, err)
		return err
	}
	if rt.cfg.Verbose {
		rt.printer.PrintTailoringChanges(&record, tailored)
	}

	data, err := json.MarshalIndent(tailored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal resume: %w", err)
	}
	return a.writeOutput(opts.out, data)
}
