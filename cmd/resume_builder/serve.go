package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-builder/internal/server"
)

type serveOptions struct {
	port       int
	useBrowser bool
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Starts an HTTP server exposing resume parsing and tailoring.

Endpoints:
  POST /resume/parse   - multipart upload with a 'file' PDF field
  POST /resume/tailor  - JSON {resume, jobDescription | jobUrl}
  GET  /health         - health check

Send "Accept: text/event-stream" to receive progress events before the result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default from config or PORT, else 8080)")
	cmd.Flags().BoolVar(&opts.useBrowser, "use-browser", false, "Use headless browser for SPA job postings")

	return cmd
}

func (a *app) runServe(cmd *cobra.Command, opts serveOptions) error {
	rt, err := a.setup(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.close()

	port := opts.port
	if port == 0 {
		port = rt.cfg.Port
	}

	srv, err := server.New(server.Config{
		Port:           port,
		AllowedOrigins: rt.cfg.AllowedOrigins,
		MaxUploadBytes: rt.cfg.MaxUploadBytes,
		Extractor:      rt.extractor,
		Caller:         rt.caller,
		ServiceOptions: rt.serviceOptions(),
		UseBrowser:     opts.useBrowser || rt.cfg.UseBrowser,
		Logger:         rt.logger,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	rt.logger.WithField("port", port).WithField("model", rt.cfg.Model).Info("starting resume server")
	return a.startServer(srv)
}
