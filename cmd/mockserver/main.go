package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mikeboe/agentsmith/pkg/config"
	"github.com/mikeboe/agentsmith/pkg/llm"
	"github.com/mikeboe/agentsmith/pkg/logging"
	"github.com/mikeboe/agentsmith/pkg/mockserver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg := config.LoadBackendConfig()
	var (
		listen   string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "mockserver",
		Short: "In-memory AgentSmith backend for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := logging.Setup(logging.Options{Level: logLevel, Fallback: os.Stdout})
			if err != nil {
				return err
			}
			defer closeLog()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			svc := mockserver.NewService(cfg)
			svc.Logger = logger
			if cfg.LLMProvider != "" && cfg.LLMProvider != "none" {
				model, err := llm.New(cmd.Context(), llm.Config{
					Provider: cfg.LLMProvider,
					APIKey:   cfg.LLMAPIKey,
					BaseURL:  cfg.APIBase,
					Model:    cfg.Model,
				})
				if err != nil {
					return err
				}
				svc.Respond = mockserver.ModelResponder(model)
				logger.Info("Answering with language model", "provider", cfg.LLMProvider, "model", cfg.Model)
			} else {
				logger.Info("No LLM configured, echoing messages")
			}

			gin.SetMode(gin.ReleaseMode)
			srv := &http.Server{
				Addr:    listen,
				Handler: mockserver.NewRouter(svc, reg),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Server starting", "addr", listen, "chunk_size", cfg.ChunkSize, "chunk_overlap", cfg.ChunkOverlap)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-cmd.Context().Done():
			}

			logger.Info("Shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	rootCmd.Flags().StringVarP(&listen, "listen", "l", ":"+cfg.Port, "Address to listen on")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
