// Package main is the IntakeDesk operator CLI. It talks to a running API
// server over HTTP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/IntakeDesk/internal/client"
	"github.com/dharsanguruparan/IntakeDesk/internal/config"
	"github.com/dharsanguruparan/IntakeDesk/internal/ingest"
	"github.com/dharsanguruparan/IntakeDesk/internal/logger"
	"github.com/dharsanguruparan/IntakeDesk/internal/orders"
	"github.com/dharsanguruparan/IntakeDesk/internal/shell"
	"github.com/dharsanguruparan/IntakeDesk/internal/view"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand(&app{})
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "intake: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg     *config.Config
	log     logger.AppLogger
	client  *client.Client
	timeout time.Duration
	prompt  shell.PromptDriver
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.AppHash)
	a.client = client.New(cfg.APIBaseURL, &http.Client{})
	return nil
}

// requestContext bounds one-shot commands by --timeout.
func (a *app) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), a.timeout)
}

func (a *app) ordersController() *orders.Controller {
	return orders.New(a.client, orders.WithLogger(a.log))
}

func (a *app) ingestController() *ingest.Controller {
	return ingest.New(a.client, ingest.WithLogger(a.log))
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "IntakeDesk operator CLI",
		Long: `intake manages patient intake orders and extracts patient details from PDF
documents through a running IntakeDesk API.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}
	cmd.PersistentFlags().String("api", "", "API base URL (INTAKE_API_URL, default http://localhost:8001)")
	cmd.PersistentFlags().String("log-level", "", "debug, info, warn or error (INTAKE_LOG_LEVEL)")
	cmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 30*time.Second, "Request timeout for one-shot commands")
	cmd.AddCommand(
		newOrdersCmd(a),
		newUploadCmd(a),
		newHealthCmd(a),
		newShellCmd(a),
	)
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a PDF and print the extracted patient details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.requestContext(cmd)
			defer cancel()
			c := a.ingestController()
			defer c.Close()
			c.SelectFile(ingest.FileFromPath(args[0]))
			if err := c.SubmitUpload(ctx); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), view.Extraction(c.State()).String())
			return nil
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.requestContext(cmd)
			defer cancel()
			body, err := a.client.Health(ctx)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(body, "", "  ")
			if err != nil {
				return fmt.Errorf("format health: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newShellCmd(a *app) *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive console with orders and document panels side by side",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := a.prompt
			if prompt == nil {
				prompt = shell.NewSurveyDriver()
			}
			o := a.ordersController()
			defer o.Close()
			i := a.ingestController()
			defer i.Close()
			return shell.New(o, i, prompt, cmd.OutOrStdout(), shell.WithWidth(width)).Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&width, "width", 56, "Width of the orders column")
	return cmd
}
