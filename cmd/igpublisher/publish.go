package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igpublisher/pkg/config"
	"igpublisher/pkg/graph"
	"igpublisher/pkg/logger"
	"igpublisher/pkg/metrics"
	"igpublisher/pkg/models"
	"igpublisher/pkg/publisher"
	"igpublisher/pkg/ui"
	"igpublisher/pkg/ui/tui"
)

var (
	publishCaption string
	publishTUI     bool
	publishNotify  bool
	publishJSON    bool
)

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish <image-url>",
	Short: "Publish one image",
	Long: `Publish one image to the configured Instagram account.

The image must be reachable by Instagram at a public http(s) URL. The command
waits until the media container has finished processing, then publishes it
and prints the new media id.`,
	Example: `  # Publish with a caption
  igpublisher publish https://cdn.example.com/photo.jpg --caption "Hello"

  # Interactive progress view with a desktop notification at the end
  igpublisher publish https://cdn.example.com/photo.jpg --tui --notify

  # Machine readable result
  igpublisher publish https://cdn.example.com/photo.jpg --json --no-logo`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&publishCaption, "caption", "", "caption for the post")
	publishCmd.Flags().BoolVar(&publishTUI, "tui", false, "show the interactive progress view")
	publishCmd.Flags().BoolVar(&publishNotify, "notify", false, "send a desktop notification when done")
	publishCmd.Flags().BoolVar(&publishJSON, "json", false, "print the result as JSON")
	publishCmd.Flags().Duration("poll-timeout", 0, "how long to wait for a container to finish (default 60s)")
	publishCmd.Flags().Duration("poll-interval", 0, "delay between container status checks (default 2s)")
	publishCmd.Flags().Bool("retry", false, "retry transient Graph API failures")
	publishCmd.Flags().String("graph-url", "", "Graph API base URL (default https://graph.facebook.com)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	req, err := models.NewPublishRequest(args[0], publishCaption)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, "poll-timeout", "poll-interval", "retry", "graph-url")
	if err != nil {
		return err
	}

	interactive := publishTUI && term.IsTerminal(int(os.Stdout.Fd()))
	if interactive && cfg.Logging.File == "" {
		// Console log lines would tear the progress view.
		cfg.Logging.Level = "disabled"
		if err := logger.Initialize(&cfg.Logging); err != nil {
			return err
		}
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifier := ui.NewNotifierWithSender(nil, os.Stdout)
	if publishNotify {
		notifier = ui.NewNotifier()
	}

	var result *models.PublishResult
	if interactive {
		result, err = publishWithTUI(ctx, cancel, req, cfg, func(observer publisher.Observer, notice graph.RetryNotice) (*publisher.Publisher, error) {
			return newPublisher(cfg, log, metrics.NewCollector(),
				[]graph.Option{graph.WithRetryNotice(notice)},
				publisher.WithObserver(observer))
		})
	} else {
		var pub *publisher.Publisher
		observer := publisher.Observer(nil)
		if !publishJSON {
			observer = ui.NewProgressPrinter(os.Stderr).Observe
			ui.PrintInfo("Image", req.ImageURL)
		}
		pub, err = newPublisher(cfg, log, metrics.NewCollector(), nil, publisher.WithObserver(observer))
		if err != nil {
			return err
		}
		result, err = pub.Publish(ctx, req)
	}

	if publishJSON {
		return printJSON(result, err)
	}
	if err != nil {
		notifier.NotifyFailed(err)
		return err
	}
	notifier.NotifyPublished(result)
	return nil
}

// publishWithTUI runs the publish on a goroutine while the progress view
// owns the terminal
func publishWithTUI(ctx context.Context, cancel context.CancelFunc, req models.PublishRequest, cfg *config.Config,
	build func(publisher.Observer, graph.RetryNotice) (*publisher.Publisher, error)) (*models.PublishResult, error) {
	view := tui.NewTUI(req.ImageURL, cfg.Publish.PollTimeout, cancel)

	pub, err := build(view.Observer(), func(op string, attempt int, err error, delay time.Duration) {
		view.LogWarning("%s attempt %d failed, retrying in %s: %v", op, attempt, delay.Round(time.Millisecond), err)
	})
	if err != nil {
		return nil, err
	}

	type outcome struct {
		result *models.PublishResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		view.LogInfo("Graph API %s, polling every %s", cfg.Graph.Endpoint(), cfg.Publish.PollInterval)
		result, err := pub.Publish(ctx, req)
		done <- outcome{result, err}
	}()

	if err := view.Start(); err != nil {
		cancel()
		<-done
		return nil, err
	}

	out := <-done
	if view.Model().Aborted() {
		ui.PrintWarning("Publish cancelled")
	}
	return out.result, out.err
}

func printJSON(result *models.PublishResult, err error) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err != nil {
		_ = enc.Encode(map[string]string{"error": err.Error()})
		return err
	}
	return enc.Encode(map[string]interface{}{"ok": true, "mediaId": result.MediaID})
}
