package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mikeboe/agentsmith/pkg/api"
	"github.com/mikeboe/agentsmith/pkg/chat"
	"github.com/mikeboe/agentsmith/pkg/config"
	"github.com/mikeboe/agentsmith/pkg/documents"
	"github.com/mikeboe/agentsmith/pkg/logging"
	"github.com/mikeboe/agentsmith/pkg/ui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// session is what every subcommand works with once flags are resolved.
type session struct {
	cfg      *config.Config
	client   *api.Client
	store    *chat.Store
	registry *documents.Registry
	closeLog func() error
}

func main() {
	// It's okay if .env doesn't exist, as long as env vars are set
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := config.NewFlags()
	sess := &session{}

	rootCmd := &cobra.Command{
		Use:           "agentsmith",
		Short:         "Terminal client for the AgentSmith RAG chat backend",
		Long:          `AgentSmith is a chat client for a retrieval-augmented backend. Upload PDFs, then ask questions answered from their content.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return sess.open(cmd, flags)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if sess.closeLog != nil {
				return sess.closeLog()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), sess)
		},
	}
	flags.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newChatCmd(sess),
		newAskCmd(sess),
		newUploadCmd(sess),
		newDocsCmd(sess),
		newHealthCmd(sess),
		newWatchCmd(sess),
	)
	return rootCmd
}

func (s *session) open(cmd *cobra.Command, flags *config.Flags) error {
	cfg, err := flags.Resolve()
	if err != nil {
		return err
	}
	s.cfg = cfg

	opts := logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Fallback: os.Stderr}
	// The full-screen chat owns the terminal, so logs go to the file or nowhere.
	if isChatCommand(cmd) && ui.IsTerminal(os.Stdin, os.Stdout) {
		opts.Fallback = nil
	}
	logger, closeLog, err := logging.Setup(opts)
	if err != nil {
		return err
	}
	s.closeLog = closeLog

	s.client = api.New(cfg.APIURL,
		api.WithUploadPath(cfg.UploadPath),
		api.WithLogger(logger),
		api.WithMetrics(prometheus.DefaultRegisterer),
	)
	s.store = chat.NewStore(s.client)
	s.store.Logger = logger
	s.registry = documents.NewRegistry(s.client)
	s.registry.Logger = logger

	logger.Debug("Client configured", "api_url", s.client.BaseURL(), "upload_path", cfg.UploadPath, "session_id", s.store.SessionID())
	return nil
}

func isChatCommand(cmd *cobra.Command) bool {
	return cmd.Name() == "chat" || !cmd.HasParent()
}
