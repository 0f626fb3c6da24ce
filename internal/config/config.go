package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// recognized HTTP methods. GET, DELETE, OPTIONS, and HEAD carry the payload
// as query parameters; POST and PUT carry it in the request body.
var supportedMethods = map[string]bool{
	"GET":     true,
	"DELETE":  true,
	"OPTIONS": true,
	"HEAD":    true,
	"POST":    true,
	"PUT":     true,
}

// DataFormat identifies how a data file is parsed into payload records.
type DataFormat string

const (
	// DataFormatKV is the line-oriented default: one record per line,
	// whitespace-separated key:value tokens, read cyclically.
	DataFormatKV DataFormat = "kv"
	// DataFormatCSV is a CSV file with a header row.
	DataFormatCSV DataFormat = "csv"
	// DataFormatJSON is a file holding a JSON array of flat objects.
	DataFormatJSON DataFormat = "json"
)

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

type ArrivalConfig struct {
	Model ArrivalModel `mapstructure:"model"`
}

type LoadPatternType string

const (
	LoadPatternTypeRamp  LoadPatternType = "ramp"
	LoadPatternTypeStep  LoadPatternType = "step"
	LoadPatternTypeSpike LoadPatternType = "spike"
)

type LoadPattern struct {
	Name     string          `mapstructure:"name"`
	Type     LoadPatternType `mapstructure:"type"`
	FromRPS  int             `mapstructure:"from_rps"`
	ToRPS    int             `mapstructure:"to_rps"`
	Duration time.Duration   `mapstructure:"duration"`
	Steps    []LoadStep      `mapstructure:"steps"`
	RPS      int             `mapstructure:"rps"`
}

type LoadStep struct {
	RPS      int           `mapstructure:"rps"`
	Duration time.Duration `mapstructure:"duration"`
}

// TracingConfig controls the optional OpenTelemetry exporter. With no
// endpoint configured tracing stays a no-op.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" (default) or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether the run should initialize a tracer provider.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || t.Propagate
}

// ShouldPropagate reports whether W3C trace headers are injected into
// outgoing benchmark requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Propagate
}

// Config is the validated run configuration. It is built once by the Loader
// and never mutated after Validate succeeds.
type Config struct {
	TargetURL string            `mapstructure:"target"`
	Method    string            `mapstructure:"method"`
	Headers   map[string]string `mapstructure:"headers"`
	Auth      string            `mapstructure:"auth"` // user:password for HTTP basic auth

	Data       []string   `mapstructure:"data"` // fixed key:value payload pairs
	DataFile   string     `mapstructure:"data_file"`
	DataFormat DataFormat `mapstructure:"data_format"`
	JSONBody   bool       `mapstructure:"json_body"`

	Concurrency      int           `mapstructure:"concurrency"`
	Rate             int           `mapstructure:"rate"`
	Duration         time.Duration `mapstructure:"duration"`
	Limit            int           `mapstructure:"limit"`
	Timeout          time.Duration `mapstructure:"timeout"`
	GracefulShutdown time.Duration `mapstructure:"graceful_shutdown"`

	JSONOutput bool   `mapstructure:"json_output"`
	Dashboard  bool   `mapstructure:"dashboard"`
	Verbose    bool   `mapstructure:"verbose"`
	OutputFile string `mapstructure:"output"` // raw request/response dump side channel

	Thresholds []string `mapstructure:"thresholds"`

	Arrival      ArrivalConfig `mapstructure:"arrival"`
	LoadPatterns []LoadPattern `mapstructure:"load_patterns"`
	Tracing      TracingConfig `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
}

// ValidationError collects every configuration problem found in one pass so
// the operator fixes them all at once. It is fatal: the run never starts.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks the configuration invariants once, before any request is
// sent. A valid config is never re-checked mid-run.
func (c Config) Validate() error {
	var issues []string

	target := strings.TrimSpace(c.TargetURL)
	if target == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	} else if u, err := url.Parse(target); err != nil {
		issues = append(issues, fmt.Sprintf("target: %v", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		issues = append(issues, fmt.Sprintf("target must be an http or https URL, got %q", target))
	} else if u.Host == "" {
		issues = append(issues, "target URL has no host")
	}

	if !supportedMethods[strings.ToUpper(strings.TrimSpace(c.Method))] {
		issues = append(issues, fmt.Sprintf("method %q is not supported (use GET, DELETE, OPTIONS, HEAD, POST, or PUT)", c.Method))
	}

	if c.Limit > 0 && c.Duration > 0 {
		issues = append(issues, "limit and duration are mutually exclusive")
	}
	if c.Limit < 0 {
		issues = append(issues, "limit must be >= 0")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}

	if len(c.Data) > 0 && strings.TrimSpace(c.DataFile) != "" {
		issues = append(issues, "data and data-file are mutually exclusive")
	}
	switch c.DataFormat {
	case "", DataFormatKV, DataFormatCSV, DataFormatJSON:
	default:
		issues = append(issues, fmt.Sprintf("data-format must be 'kv', 'csv', or 'json', got %q", c.DataFormat))
	}
	for _, pair := range c.Data {
		if !strings.Contains(pair, ":") {
			issues = append(issues, fmt.Sprintf("data %q is not a key:value pair", pair))
		}
	}

	if auth := strings.TrimSpace(c.Auth); auth != "" {
		if !strings.Contains(auth, ":") {
			issues = append(issues, "auth must be in user:password form")
		}
	}

	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}

	if arrivalIssues := validateArrivalConfig(c.Arrival); len(arrivalIssues) > 0 {
		issues = append(issues, arrivalIssues...)
	}
	if patternIssues := validateLoadPatterns(c.LoadPatterns); len(patternIssues) > 0 {
		issues = append(issues, patternIssues...)
	}
	if tracingIssues := validateTracingConfig(c.Tracing); len(tracingIssues) > 0 {
		issues = append(issues, tracingIssues...)
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// BasicAuth splits the auth string into its user and password halves. The
// second return is false when no credentials are configured.
func (c Config) BasicAuth() (user, password string, ok bool) {
	auth := strings.TrimSpace(c.Auth)
	if auth == "" {
		return "", "", false
	}
	user, password, _ = strings.Cut(auth, ":")
	return user, password, true
}

func validateArrivalConfig(arr ArrivalConfig) []string {
	model := arr.Model
	if model == "" {
		model = ArrivalModelUniform
	}
	switch model {
	case ArrivalModelUniform, ArrivalModelPoisson:
		return nil
	default:
		return []string{fmt.Sprintf("arrival model %q is not supported", model)}
	}
}

func validateLoadPatterns(patterns []LoadPattern) []string {
	var issues []string
	for idx, pattern := range patterns {
		typeLabel := strings.TrimSpace(string(pattern.Type))
		if typeLabel == "" {
			issues = append(issues, fmt.Sprintf("loadPatterns[%d]: type is required", idx))
			continue
		}
		switch LoadPatternType(strings.ToLower(typeLabel)) {
		case LoadPatternTypeRamp:
			if pattern.Duration <= 0 {
				issues = append(issues, fmt.Sprintf("loadPatterns[%d]: duration must be > 0 for ramp", idx))
			}
			if pattern.FromRPS < 0 || pattern.ToRPS < 0 {
				issues = append(issues, fmt.Sprintf("loadPatterns[%d]: from_rps and to_rps must be >= 0", idx))
			}
		case LoadPatternTypeStep:
			if len(pattern.Steps) == 0 {
				issues = append(issues, fmt.Sprintf("loadPatterns[%d]: steps are required for step pattern", idx))
			}
			for stepIdx, step := range pattern.Steps {
				if step.RPS < 0 {
					issues = append(issues, fmt.Sprintf("loadPatterns[%d].steps[%d]: rps must be >= 0", idx, stepIdx))
				}
				if step.Duration <= 0 {
					issues = append(issues, fmt.Sprintf("loadPatterns[%d].steps[%d]: duration must be > 0", idx, stepIdx))
				}
			}
		case LoadPatternTypeSpike:
			if pattern.RPS <= 0 {
				issues = append(issues, fmt.Sprintf("loadPatterns[%d]: rps must be > 0 for spike", idx))
			}
			if pattern.Duration <= 0 {
				issues = append(issues, fmt.Sprintf("loadPatterns[%d]: duration must be > 0 for spike", idx))
			}
		default:
			issues = append(issues, fmt.Sprintf("loadPatterns[%d]: unsupported type %q", idx, pattern.Type))
		}
	}
	return issues
}

func validateTracingConfig(tc TracingConfig) []string {
	var issues []string
	if tc.SampleRate < 0 || tc.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing sample_rate must be between 0.0 and 1.0, got %g", tc.SampleRate))
	}
	switch strings.ToLower(strings.TrimSpace(tc.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol must be 'grpc' or 'http', got %q", tc.Protocol))
	}
	return issues
}
