package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mikeboe/agentsmith/pkg/api"
	"github.com/mikeboe/agentsmith/pkg/documents"
	"github.com/mikeboe/agentsmith/pkg/ui"
	"github.com/mikeboe/agentsmith/pkg/watcher"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newChatCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat (the default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), sess)
		},
	}
}

func runChat(ctx context.Context, sess *session) error {
	app := ui.NewApp(sess.store, sess.registry)
	if ui.IsTerminal(os.Stdin, os.Stdout) {
		return ui.RunInteractiveChat(ctx, app)
	}
	return ui.RunREPL(ctx, app, os.Stdin, os.Stdout)
}

func newAskCmd(sess *session) *cobra.Command {
	var useRAG bool

	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask a single question and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess.store.SetUseRAG(useRAG)
			if err := sess.store.Send(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}

			turns := sess.store.Turns()
			reply := turns[len(turns)-1]
			fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
			if len(reply.Sources) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\nSources: %s\n", strings.Join(reply.Sources, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&useRAG, "rag", "r", false, "Answer from the uploaded documents")
	return cmd
}

func newUploadCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE.pdf...",
		Short: "Upload one or more PDFs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				if !ui.IsPDF(path) {
					fmt.Fprintf(out, "❌ %s: %v\n", path, ui.ErrNotPDF)
					failed++
					continue
				}
				resp, err := sess.registry.UploadFile(cmd.Context(), path)
				if err != nil {
					fmt.Fprintf(out, "❌ %s: %v\n", path, err)
					failed++
					continue
				}
				fmt.Fprintf(out, "✅ %s: %s pages, %s chunks\n", resp.Filename,
					humanize.Comma(int64(resp.Pages)), humanize.Comma(int64(resp.Chunks)))
			}

			if state := sess.registry.State(); state.HasDocuments() {
				fmt.Fprintln(out, ui.FormatDocuments(state))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(args))
			}
			return nil
		},
	}
}

func newDocsCmd(sess *session) *cobra.Command {
	docsCmd := &cobra.Command{
		Use:   "docs",
		Short: "List uploaded documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Listing directly so backend errors reach the user.
			info, err := sess.client.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatDocuments(documents.State{Snapshot: info}))
			return nil
		},
	}

	docsCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all uploaded documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sess.registry.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All documents cleared")
			return nil
		},
	})
	return docsCmd
}

func newHealthCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := sess.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			printHealth(cmd, sess.client.BaseURL(), health)
			return nil
		},
	}
}

func printHealth(cmd *cobra.Command, baseURL string, h *api.HealthResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backend:           %s\n", baseURL)
	fmt.Fprintf(out, "Status:            %s\n", h.Status)
	fmt.Fprintf(out, "OpenAI configured: %t\n", h.OpenAIConfigured)
	fmt.Fprintf(out, "API base:          %s\n", h.APIBase)
	fmt.Fprintf(out, "Chunks loaded:     %s\n", humanize.Comma(int64(h.DocumentsLoaded)))
}

func newWatchCmd(sess *session) *cobra.Command {
	var (
		existing    bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Upload PDFs as they appear in a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			w := watcher.New(sess.registry)
			w.UploadExisting = existing
			w.Logger = sess.registry.Logger
			w.OnUpload = func(path string, resp *api.UploadResponse, err error) {
				if err != nil {
					fmt.Fprintf(out, "❌ %s: %v\n", path, err)
					return
				}
				fmt.Fprintf(out, "✅ %s: %s pages, %s chunks\n", resp.Filename,
					humanize.Comma(int64(resp.Pages)), humanize.Comma(int64(resp.Chunks)))
			}

			if metricsAddr != "" {
				go serveMetrics(metricsAddr, w.Logger)
			}

			fmt.Fprintf(out, "Watching %s for PDFs (Ctrl+C to stop)\n", args[0])
			return w.Run(cmd.Context(), args[0])
		},
	}
	cmd.Flags().BoolVar(&existing, "existing", false, "Also upload PDFs already in the folder")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve client request metrics on this address, e.g. :9100")
	return cmd
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("Serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server stopped", "error", err)
	}
}
