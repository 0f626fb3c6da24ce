package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags on a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "reqbench [target]",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Core request flags
	flags.String("target", "", "Target URL to benchmark (may also be given as the positional argument)")
	flags.StringP("method", "m", "GET", "HTTP method to use (GET, DELETE, OPTIONS, HEAD, POST, PUT)")
	flags.StringSliceP("header", "H", nil, "Additional request header in name:value form (repeatable)")
	flags.StringP("auth", "a", "", "HTTP basic auth credentials in user:password form")

	// Payload flags
	flags.StringSliceP("data", "D", nil, "Fixed payload field in key:value form (repeatable)")
	flags.StringP("data-file", "F", "", "Path to a data file read cyclically, one record per request")
	flags.String("data-format", string(DataFormatKV), "Data file format: 'kv' (key:value lines), 'csv', or 'json'")
	flags.BoolP("json", "j", false, "Encode body payloads as JSON instead of form data")

	// Load control flags
	flags.IntP("concurrency", "c", 1, "Number of concurrent request slots")
	flags.IntP("limit", "l", 0, "Total number of requests to send (0 means unlimited)")
	flags.DurationP("duration", "d", 0, "How long to run the benchmark (e.g. 30s, 1m)")
	flags.IntP("rate", "r", 0, "Requests per second limit (0 means unpaced)")
	flags.String("arrival-model", string(ArrivalModelUniform), "Arrival model when pacing requests (uniform or poisson)")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout")
	flags.Duration("graceful-shutdown", 5*time.Second, "Max time to wait for in-flight requests after the run ends (negative cancels them immediately)")

	// Output flags
	flags.StringP("output", "O", "", "Write a raw request/response dump to this file")
	flags.BoolP("verbose", "v", false, "Log each failed request to stderr")
	flags.Bool("json-output", false, "Emit the final report as JSON")
	flags.Bool("dashboard", false, "Show a live terminal dashboard")
	flags.StringSlice("threshold", nil, "Performance threshold (repeatable, e.g. 'http_req_duration:p95 < 500')")
	flags.String("config", "", "Path to a configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("trace-endpoint", "", "OTLP endpoint for trace export (empty disables tracing)")
	flags.String("trace-protocol", "grpc", "OTLP transport: 'grpc' or 'http'")
	flags.String("trace-service-name", "", "Service name reported on trace spans")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")
	flags.Bool("trace-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Bool("trace-propagate", false, "Inject W3C trace context headers into benchmark requests")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("method") {
		val, err := fs.GetString("method")
		if err != nil {
			return err
		}
		cfg.Method = val
	}
	if fs.Changed("auth") {
		val, err := fs.GetString("auth")
		if err != nil {
			return err
		}
		cfg.Auth = strings.TrimSpace(val)
	}
	if fs.Changed("data") {
		val, err := fs.GetStringSlice("data")
		if err != nil {
			return err
		}
		cfg.Data = val
		cfg.DataFile = ""
	}
	if fs.Changed("data-file") {
		val, err := fs.GetString("data-file")
		if err != nil {
			return err
		}
		cfg.DataFile = strings.TrimSpace(val)
		cfg.Data = nil
	}
	if fs.Changed("data-format") {
		val, err := fs.GetString("data-format")
		if err != nil {
			return err
		}
		cfg.DataFormat = DataFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("json") {
		val, err := fs.GetBool("json")
		if err != nil {
			return err
		}
		cfg.JSONBody = val
	}
	if fs.Changed("concurrency") {
		val, err := fs.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("limit") {
		val, err := fs.GetInt("limit")
		if err != nil {
			return err
		}
		cfg.Limit = val
	}
	if fs.Changed("duration") {
		val, err := fs.GetDuration("duration")
		if err != nil {
			return err
		}
		cfg.Duration = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("arrival-model") {
		val, err := fs.GetString("arrival-model")
		if err != nil {
			return err
		}
		cfg.Arrival.Model = ArrivalModel(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("graceful-shutdown") {
		val, err := fs.GetDuration("graceful-shutdown")
		if err != nil {
			return err
		}
		cfg.GracefulShutdown = val
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.OutputFile = strings.TrimSpace(val)
	}
	if fs.Changed("verbose") {
		val, err := fs.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}

	vals, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, entry := range vals {
			name, value, ok := strings.Cut(entry, ":")
			if !ok {
				return fmt.Errorf("header must be in name:value format: %s", entry)
			}
			key := http.CanonicalHeaderKey(strings.TrimSpace(name))
			if key == "" {
				return fmt.Errorf("header name cannot be empty")
			}
			cfg.Headers[key] = strings.TrimSpace(value)
		}
	}

	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("trace-service-name") {
		val, err := fs.GetString("trace-service-name")
		if err != nil {
			return err
		}
		cfg.Tracing.ServiceName = strings.TrimSpace(val)
	}
	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("trace-propagate") {
		val, err := fs.GetBool("trace-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = val
	}

	return nil
}
