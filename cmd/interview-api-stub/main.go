// cmd/interview-api-stub/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"candidate-interview/internal/apistub"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// jobEntry is one job in the --jobs file.
type jobEntry struct {
	JobID         int64  `yaml:"job_id"`
	Title         string `yaml:"title"`
	CompanyName   string `yaml:"company_name"`
	Description   string `yaml:"description"`
	Requirements  string `yaml:"requirements"`
	HasQuiz       bool   `yaml:"has_quiz"`
	HasCodingTest bool   `yaml:"has_coding_test"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr        string
		jobsPath    string
		revealCodes bool
		logLevel    string
	)

	flagSet := pflag.NewFlagSet("interview-api-stub", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", ":8081", "listen address")
	flagSet.StringVar(&jobsPath, "jobs", "", "YAML file with the jobs to serve (default: one interview-only job 1)")
	flagSet.BoolVar(&revealCodes, "reveal-codes", true, "log one-time codes so a local candidate can enter them")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	zapLog := logger.New(logLevel, "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	jobs, err := loadJobs(jobsPath)
	if err != nil {
		return err
	}

	stub := apistub.New(apistub.Options{Logger: log, RevealCodes: revealCodes})
	for _, job := range jobs {
		stub.AddJob(job)
		zapLog.Info("Serving job",
			zap.Int64("jobId", job.JobID),
			zap.String("title", job.Title),
			zap.Bool("quiz", job.HasQuiz),
			zap.Bool("coding", job.HasCodingTest),
		)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           stub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLog.Info("Interview API stub listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	}

	zapLog.Info("Shutdown signal received, stopping stub...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	zapLog.Info("Interview API stub stopped gracefully")
	return nil
}

func loadJobs(path string) ([]models.JobConfiguration, error) {
	if path == "" {
		return []models.JobConfiguration{{
			JobID:        1,
			Title:        "Software Engineer",
			CompanyName:  "Example Corp",
			Description:  "Build and run backend services.",
			Requirements: "Go, SQL, distributed systems",
		}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jobs file: %w", err)
	}
	var entries []jobEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse jobs file %s: %w", path, err)
	}

	jobs := make([]models.JobConfiguration, 0, len(entries))
	for _, e := range entries {
		if e.JobID <= 0 {
			return nil, fmt.Errorf("jobs file %s: job_id must be positive", path)
		}
		jobs = append(jobs, models.JobConfiguration{
			JobID:         e.JobID,
			Title:         e.Title,
			CompanyName:   e.CompanyName,
			Description:   e.Description,
			Requirements:  e.Requirements,
			HasQuiz:       e.HasQuiz,
			HasCodingTest: e.HasCodingTest,
		})
	}
	return jobs, nil
}
