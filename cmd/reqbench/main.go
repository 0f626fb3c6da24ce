package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ip0000h/reqbench/internal/auth"
	"github.com/ip0000h/reqbench/internal/config"
	"github.com/ip0000h/reqbench/internal/dashboard"
	"github.com/ip0000h/reqbench/internal/feeder"
	"github.com/ip0000h/reqbench/internal/httpclient"
	"github.com/ip0000h/reqbench/internal/metrics"
	"github.com/ip0000h/reqbench/internal/output"
	"github.com/ip0000h/reqbench/internal/runner"
	"github.com/ip0000h/reqbench/internal/threshold"
	"github.com/ip0000h/reqbench/internal/tracing"
)

const (
	progressInterval   = time.Second
	maxLoggedBodyBytes = 1024
	tracerShutdownWait = 5 * time.Second
)

type httpRequester struct {
	client    *http.Client
	builder   *httpclient.RequestBuilder
	collector *metrics.Collector
	dump      *output.DumpWriter
	trace     *tracing.Provider
}

type stderrFailureLogger struct {
	mu sync.Mutex
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Thresholds are parsed up front so a typo fails before any load is sent.
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	runID := ulid.Make().String()

	feed, err := buildFeeder(cfg)
	if err != nil {
		return err
	}
	defer feed.Close()

	builder, err := buildRequestBuilder(cfg, feed)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	traceProvider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), tracerShutdownWait)
		defer shutdownCancel()
		_ = traceProvider.Shutdown(shutdownCtx)
	}()

	var dump *output.DumpWriter
	if cfg.OutputFile != "" {
		dump, err = output.NewDumpWriter(cfg.OutputFile, runID)
		if err != nil {
			return err
		}
	}

	collector := metrics.NewCollector()

	requester := &httpRequester{
		client:    httpclient.NewClient(cfg.Timeout, cfg.Concurrency),
		builder:   builder,
		collector: collector,
		dump:      dump,
		trace:     traceProvider,
	}

	var wrapped runner.Requester = requester
	if cfg.Verbose {
		wrapped = runner.WithLogging(wrapped, &stderrFailureLogger{})
	}

	r := runner.New(runner.Options{
		Concurrency:   cfg.Concurrency,
		TotalRequests: cfg.Limit,
		Duration:      cfg.Duration,
		RatePerSecond: cfg.Rate,
		ArrivalModel:  toRunnerArrivalModel(cfg.Arrival.Model),
		LoadPatterns:  toRunnerLoadPatterns(cfg.LoadPatterns),
		GracePeriod:   cfg.GracefulShutdown,
		Requester:     wrapped,
	})

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(collector, dashboard.TestConfig{
			TargetURL:   cfg.TargetURL,
			Method:      cfg.Method,
			Concurrency: cfg.Concurrency,
			Duration:    cfg.Duration,
			Limit:       cfg.Limit,
			Rate:        cfg.Rate,
			Timeout:     cfg.Timeout,
			ConfigFile:  cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
	}

	var progress *output.ProgressReporter
	if !cfg.JSONOutput && !cfg.Dashboard {
		progress = output.NewProgressReporter(collector, progressInterval, os.Stdout)
		progress.Start()
	}

	// Mark the actual start time in the collector for accurate RPS calculation.
	collector.Start()
	result := r.Run(ctx)

	if progress != nil {
		progress.Stop()
		fmt.Fprintln(os.Stdout)
	}
	if dash != nil {
		dash.Stop()
	}

	if dump != nil {
		if n := dump.Failures(); n > 0 {
			fmt.Fprintf(os.Stderr, "Warning: %d dump records could not be written\n", n)
		}
		if err := dump.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: closing dump file: %v\n", err)
		}
	}

	// A fatal requester error aborts the run without a report; an operator
	// interrupt does not, it just truncates the run.
	if result.Err != nil {
		return result.Err
	}

	stats := collector.Stats(result.Duration)
	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, runID, stats); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, runID, stats)
	}

	if len(thresholds) > 0 {
		failed := 0
		fmt.Fprintln(os.Stdout, "\nThresholds:")
		for _, res := range threshold.NewEvaluator(thresholds).Evaluate(stats) {
			fmt.Fprintf(os.Stdout, "  %s\n", res.Message)
			if !res.Pass {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d threshold(s) failed", failed)
		}
	}

	// Per-attempt failures are part of the measurement, not an error of the
	// benchmark itself.
	return nil
}

// buildFeeder selects the payload source: fixed command-line pairs, a data
// file in the configured format, or an empty static record.
func buildFeeder(cfg *config.Config) (httpclient.Feeder, error) {
	if len(cfg.Data) > 0 {
		record := make(feeder.Record, 0, len(cfg.Data))
		for _, pair := range cfg.Data {
			field, err := feeder.ParseField(pair)
			if err != nil {
				return nil, fmt.Errorf("data: %w", err)
			}
			record = append(record, field)
		}
		return feeder.NewStaticFeeder(record), nil
	}

	if cfg.DataFile != "" {
		switch cfg.DataFormat {
		case config.DataFormatCSV:
			return feeder.NewCSVFeeder(cfg.DataFile)
		case config.DataFormatJSON:
			return feeder.NewJSONFeeder(cfg.DataFile)
		default:
			return feeder.NewLineFeeder(cfg.DataFile)
		}
	}

	return feeder.NewStaticFeeder(nil), nil
}

func buildRequestBuilder(cfg *config.Config, feed httpclient.Feeder) (*httpclient.RequestBuilder, error) {
	if user, password, ok := cfg.BasicAuth(); ok {
		return httpclient.NewRequestBuilderWithAuthAndFeeder(cfg, auth.NewBasicProvider(user, password), feed)
	}
	return httpclient.NewRequestBuilderWithFeeder(cfg, feed)
}

func (r *httpRequester) Do(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := r.builder.Build(ctx)
	if err != nil {
		var malformed *feeder.MalformedRecordError
		if errors.As(err, &malformed) {
			// Broken payload data invalidates the whole run.
			return runner.Fatal(err)
		}
		r.collector.RecordRequest(metrics.Classify(0, 0, 0, err))
		return err
	}

	span := r.trace.StartAttempt(req)
	r.dumpRequest(req)

	// The measured window opens at dispatch and closes once the body is
	// fully consumed; building the request stays outside it.
	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.collector.RecordRequest(metrics.Classify(0, 0, time.Since(start), err))
		r.dump.Write(output.DumpRecord{
			Time:   start,
			Method: req.Method,
			URL:    req.URL.String(),
			Error:  err.Error(),
		})
		tracing.EndAttempt(span, err)
		return err
	}
	defer resp.Body.Close()

	var resultErr error
	var bytesRead int64
	var bodySnippet string
	truncated := false
	if resp.StatusCode >= 400 {
		snippet, readErr := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyBytes))
		_, _ = io.Copy(io.Discard, resp.Body)
		if readErr != nil {
			resultErr = readErr
			truncated = true
		} else {
			bodySnippet = strings.TrimSpace(string(snippet))
			resultErr = &runner.HTTPError{
				StatusCode: resp.StatusCode,
				Body:       bodySnippet,
			}
		}
	} else {
		// The full body is read so its size is measured and the connection
		// can be reused.
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			// The response never fully arrived; the status line alone does
			// not make it a success.
			resultErr = readErr
			truncated = true
		} else {
			bytesRead = int64(len(body))
			if len(body) > maxLoggedBodyBytes {
				body = body[:maxLoggedBodyBytes]
			}
			bodySnippet = string(body)
		}
	}
	latency := time.Since(start)

	status := resp.StatusCode
	if truncated {
		status = 0
	}
	outcome := metrics.Classify(status, bytesRead, latency, resultErr)
	r.collector.RecordRequest(outcome)

	rec := output.DumpRecord{
		Time:            start,
		Method:          req.Method,
		URL:             req.URL.String(),
		Status:          resp.StatusCode,
		ResponseHeaders: resp.Header,
		ResponseBody:    bodySnippet,
	}
	if truncated {
		rec.Error = resultErr.Error()
	}
	r.dump.Write(rec)

	tracing.EndAttempt(span, resultErr,
		attribute.String("http.response.status_class", metrics.StatusClassLabel(outcome)),
		attribute.Int64("http.response.body.size", bytesRead),
	)
	return resultErr
}

// dumpRequest records the outgoing request in the side channel. The body is
// re-read via GetBody so the attempt's own reader is untouched.
func (r *httpRequester) dumpRequest(req *http.Request) {
	if r.dump == nil {
		return
	}
	rec := output.DumpRecord{
		Time:           time.Now().UTC(),
		Method:         req.Method,
		URL:            req.URL.String(),
		RequestHeaders: req.Header,
	}
	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			payload, readErr := io.ReadAll(io.LimitReader(body, maxLoggedBodyBytes))
			body.Close()
			if readErr == nil {
				rec.RequestBody = string(payload)
			}
		}
	}
	r.dump.Write(rec)
}

func toRunnerArrivalModel(model config.ArrivalModel) runner.ArrivalModel {
	switch strings.ToLower(string(model)) {
	case string(config.ArrivalModelPoisson):
		return runner.ArrivalModelPoisson
	default:
		return runner.ArrivalModelUniform
	}
}

func toRunnerLoadPatterns(patterns []config.LoadPattern) []runner.LoadPattern {
	if len(patterns) == 0 {
		return nil
	}
	result := make([]runner.LoadPattern, len(patterns))
	for i, p := range patterns {
		result[i] = runner.LoadPattern{
			Type:     runner.LoadPatternType(p.Type),
			FromRPS:  p.FromRPS,
			ToRPS:    p.ToRPS,
			Duration: p.Duration,
			Steps:    toRunnerLoadSteps(p.Steps),
			RPS:      p.RPS,
		}
	}
	return result
}

func toRunnerLoadSteps(steps []config.LoadStep) []runner.LoadPatternStep {
	if len(steps) == 0 {
		return nil
	}
	result := make([]runner.LoadPatternStep, len(steps))
	for i, s := range steps {
		result[i] = runner.LoadPatternStep{
			RPS:      s.RPS,
			Duration: s.Duration,
		}
	}
	return result
}

func (l *stderrFailureLogger) LogFailure(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[reqbench] request failed: %v\n", err)
}
