package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"va-bridge/internal/config"
	"va-bridge/internal/log"
	"va-bridge/internal/server"
	"va-bridge/internal/sparkcentral"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "va-bridge",
		Short:        "Sparkcentral Virtual Agent webhook bridge",
		Long:         "va-bridge answers Sparkcentral Virtual Agent webhooks with an intent bot and sends GIFs on request.",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(signCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the webhook (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := log.Setup(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := server.DefaultDeps(ctx, cfg)
	if err != nil {
		logger.Error("failed to set up upstream clients", "error", err)
		return err
	}
	s, err := server.NewServer(cfg, deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return s.Run(ctx)
}

func signCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "sign [file]",
		Short: "Print the signature header for a webhook body read from file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = config.Load().WebhookSecret
			}
			v, err := sparkcentral.NewVerifier(secret)
			if err != nil {
				return err
			}

			var body []byte
			if len(args) == 1 {
				body, err = os.ReadFile(args[0])
			} else {
				body, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", sparkcentral.SignatureHeader, v.Sign(body))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "hex encoded webhook secret (default: $SPARKCENTRAL_VA_SECRET)")
	return cmd
}
