package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"igpublisher/internal/server"
	"igpublisher/pkg/auth"
	"igpublisher/pkg/config"
	"igpublisher/pkg/graph"
	"igpublisher/pkg/logger"
	"igpublisher/pkg/metrics"
	"igpublisher/pkg/publisher"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP publish service",
	Long: `Run the HTTP service.

Endpoints:
  POST /api/instagram/publish   publish {"imageUrl": "...", "caption": "..."}
  GET  /                        a small form for manual publishing
  GET  /healthz                 liveness
  GET  /metrics                 Prometheus metrics

Credentials are resolved on every request from IG_USER_ID and
IG_ACCESS_TOKEN, then the system keychain, then the encrypted credentials
file written by 'igpublisher auth login'.`,
	Example: `  # Listen on the default :8080
  igpublisher serve

  # Listen elsewhere and retry transient Graph API failures
  igpublisher serve --addr 127.0.0.1:9000 --retry`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().Duration("poll-timeout", 0, "how long to wait for a container to finish (default 60s)")
	serveCmd.Flags().Duration("poll-interval", 0, "delay between container status checks (default 2s)")
	serveCmd.Flags().Bool("retry", false, "retry transient Graph API failures")
	serveCmd.Flags().String("graph-url", "", "Graph API base URL (default https://graph.facebook.com)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "addr", "poll-timeout", "poll-interval", "retry", "graph-url")
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	collector := metrics.NewCollector()
	pub, err := newPublisher(cfg, log, collector, nil)
	if err != nil {
		return err
	}

	srv := server.NewServer(&server.Config{
		Addr:            cfg.Server.Addr,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Publisher:       pub,
		Logger:          log,
		Metrics:         collector,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

// newPublisher wires the Graph API client and the credential chain into a
// publisher configured from cfg
func newPublisher(cfg *config.Config, log logger.Logger, collector *metrics.Collector, graphOpts []graph.Option, opts ...publisher.Option) (*publisher.Publisher, error) {
	manager, err := auth.NewManager()
	if err != nil {
		return nil, err
	}

	client := graph.NewClientFromConfig(cfg, log, collector, graphOpts...)

	opts = append([]publisher.Option{
		publisher.WithPollTimeout(cfg.Publish.PollTimeout),
		publisher.WithPollInterval(cfg.Publish.PollInterval),
		publisher.WithLogger(log),
		publisher.WithMetrics(collector),
	}, opts...)

	return publisher.New(client, manager, opts...), nil
}
