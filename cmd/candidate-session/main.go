// cmd/candidate-session/main.go
package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/api"
	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/database"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/common/observability"
	"candidate-interview/internal/controller"
	"candidate-interview/internal/credentials"
	"candidate-interview/internal/integrity"
	"candidate-interview/internal/report"
	"candidate-interview/internal/review"
	"candidate-interview/internal/session"
	linkverification "candidate-interview/internal/stages/link-verification"
	"candidate-interview/pkg/registry"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

type options struct {
	configPath     string
	link           string
	resume         string
	answers        string
	format         string
	exportPath     string
	transcriptPath string
	stateDir       string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flagSet := pflag.NewFlagSet("candidate-session", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "config file (default: configs/config.yaml)")
	flagSet.StringVar(&opts.link, "link", "", "interview link, e.g. https://careers.example.com/interview?job_id=42")
	flagSet.StringVar(&opts.resume, "resume", "", "resume file to upload")
	flagSet.StringVar(&opts.answers, "answers", "", "YAML file with scripted answers (prompts for anything missing)")
	flagSet.StringVar(&opts.format, "format", report.FormatText, "summary format: text, json or yaml")
	flagSet.StringVar(&opts.exportPath, "export", "", "write the session to this .xlsx file")
	flagSet.StringVar(&opts.transcriptPath, "transcript", "", "write the interview transcript to this file or directory")
	flagSet.StringVar(&opts.stateDir, "state-dir", filepath.Join(os.TempDir(), "candidate-session"), "directory for mount markers")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if stderrors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.link == "" {
		return fmt.Errorf("--link is required")
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	log := logger.NewFromOptions(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	answers, err := LoadAnswers(opts.answers)
	if err != nil {
		return err
	}
	catalog, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		return fmt.Errorf("stage registry: %w", err)
	}

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("Observability disabled", map[string]interface{}{"error": err.Error()})
		obs = observability.Noop()
	}
	defer obs.Shutdown()

	if cfg.Metrics.Enabled {
		stop := serveMetrics(cfg.Metrics.Address, log)
		defer stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conns, err := database.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open backends: %w", err)
	}
	defer conns.Close()

	var rdb redis.Cmdable
	if conns.Redis != nil {
		rdb = conns.Redis.Client
	}
	store, err := credentials.NewFromConfig(cfg.Credentials, rdb, log)
	if err != nil {
		return err
	}

	backends := review.Backends{}
	if conns.Elasticsearch != nil {
		backends.Elasticsearch = conns.Elasticsearch.Client
	}
	if conns.Postgres != nil {
		backends.Postgres = conns.Postgres.DB
	}
	snapshots, err := session.NewFromConfig(cfg.Session, backends.Postgres, log)
	if err != nil {
		return err
	}
	flagger, err := review.NewFromConfig(cfg.Review, backends, log)
	if err != nil {
		return err
	}
	if err := ensureSchemas(ctx, snapshots, flagger); err != nil {
		return err
	}

	jobID, err := linkverification.ParseJobID(opts.link, "job_id")
	if err != nil {
		return fmt.Errorf("invalid interview link: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	env, err := newTerminalEnvironment(markerPath(opts.stateDir, jobID), os.Stdout, sigCh, cancel)
	if err != nil {
		return err
	}
	// A run killed without unmounting leaves the marker behind, so the next
	// start is a reload.
	defer func() {
		if err := env.Close(); err != nil {
			log.Warn("Failed to remove mount marker", map[string]interface{}{"error": err.Error()})
		}
	}()

	monitor, err := integrity.NewMonitor(integrity.Options{
		Config:      integrity.ConfigFrom(cfg.Integrity),
		Environment: env,
		Credentials: store,
		Notifier:    newTerminalNotifier(os.Stdout),
		Flagger:     flagger,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	client := api.NewClientFromConfig(cfg.API, store, log)
	agg := aggregator.New(aggregator.Options{Logger: log})
	stages, err := controller.NewStages(controller.StageDependencies{
		AppConfig:   cfg,
		API:         client,
		Aggregator:  agg,
		Credentials: store,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	ctrl, err := controller.New(controller.Options{
		Stages:        stages,
		Aggregator:    agg,
		Feedback:      client,
		Credentials:   store,
		Snapshots:     snapshots,
		Monitor:       monitor,
		Logger:        log,
		Observability: obs,
	})
	if err != nil {
		return err
	}

	j := &journey{
		ctrl:    ctrl,
		answers: answers,
		resume:  opts.resume,
		catalog: catalog,
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		logger:  log,
	}
	journeyErr := j.run(ctx, opts.link)
	ctrl.Unmount()

	if ctrl.Job() != nil {
		if err := writeOutputs(opts, ctrl, os.Stdout); err != nil {
			return err
		}
	}
	return journeyErr
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

type schemaOwner interface {
	EnsureSchema(ctx context.Context) error
}

func ensureSchemas(ctx context.Context, stores ...interface{}) error {
	for _, s := range stores {
		owner, ok := s.(schemaOwner)
		if !ok {
			continue
		}
		if err := owner.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	return nil
}

func serveMetrics(addr string, log logger.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("Metrics server listening", map[string]interface{}{"addr": addr})
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
}

// writeOutputs renders the summary and writes the optional transcript and
// spreadsheet.
func writeOutputs(opts options, ctrl *controller.Controller, out io.Writer) error {
	s := ctrl.Session()
	responses := ctrl.Responses()
	summary := report.Build(s, responses)

	fmt.Fprintln(out)
	if err := report.Render(out, opts.format, summary); err != nil {
		return err
	}

	if opts.transcriptPath != "" {
		text, err := report.Transcript(ctrl.Transcript(), s.Feedback)
		switch {
		case stderrors.Is(err, report.ErrNoTranscript):
			fmt.Fprintln(out, "No transcript available to download.")
		case err != nil:
			return err
		default:
			path := opts.transcriptPath
			if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
				path = filepath.Join(path, report.TranscriptFileName(s.CompanyName))
			}
			if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
				return fmt.Errorf("write transcript: %w", err)
			}
			fmt.Fprintf(out, "Transcript saved to %s\n", path)
		}
	}

	if opts.exportPath != "" {
		wb := report.Workbook{Summary: summary, Responses: responses}
		if err := wb.ExportExcel(opts.exportPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Session exported to %s\n", opts.exportPath)
	}
	return nil
}
