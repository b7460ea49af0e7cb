package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/ScanGo/internal/config"
	"github.com/cjeanneret/ScanGo/internal/debug"
	"github.com/cjeanneret/ScanGo/internal/logic/report"
	"github.com/cjeanneret/ScanGo/internal/logic/scan"
	"github.com/cjeanneret/ScanGo/internal/logic/sensitivity"
	"github.com/cjeanneret/ScanGo/internal/numfmt"
	"github.com/cjeanneret/ScanGo/internal/render"
	"github.com/cjeanneret/ScanGo/internal/web"
)

// Exit codes.
const (
	exitOK      = 0
	exitError   = 1
	exitInvalid = 2
)

// keepAngle is the value of an angle flag that keeps the configured default.
const keepAngle = -1

// cliOptions holds the parsed command line, minus -web.
type cliOptions struct {
	cfgPath    string
	phiStart   int
	phiStop    int
	phiInc     string
	thetaStart int
	thetaStop  int
	thetaInc   string
	freq       int
	output     string
	plotDir    string
	samples    int
}

func main() {
	var opts cliOptions

	// CLI flags
	webPort := &webPortFlag{}
	flag.Var(webPort, "web", "start web server on port; -web= for the configured port (8080), -web 8980 for custom port")
	flag.StringVar(&opts.cfgPath, "config", filepath.Join("configs", "default.yaml"), "path to config file")
	flag.IntVar(&opts.phiStart, "phi_start", keepAngle, "override PHI start angle in degrees (0-360, -1 = config)")
	flag.IntVar(&opts.phiStop, "phi_stop", keepAngle, "override PHI stop angle in degrees (0-360, -1 = config)")
	flag.StringVar(&opts.phiInc, "phi_inc", "", "override PHI increment in degrees, decimal comma accepted (e.g. 0,05)")
	flag.IntVar(&opts.thetaStart, "theta_start", keepAngle, "override THETA start angle in degrees (30-130, -1 = config)")
	flag.IntVar(&opts.thetaStop, "theta_stop", keepAngle, "override THETA stop angle in degrees (30-130, -1 = config)")
	flag.StringVar(&opts.thetaInc, "theta_inc", "", "override THETA increment in degrees, decimal comma accepted (e.g. 0,05)")
	flag.IntVar(&opts.freq, "freq", 0, "override pulse frequency in Hz (100000 or 300000, 0 = config)")
	flag.StringVar(&opts.output, "output", "text", "output format: text, json or yaml")
	flag.StringVar(&opts.plotDir, "plot_dir", "", "write acquisition-time plots (PNG) into this directory")
	flag.IntVar(&opts.samples, "samples", 0, "points on the acquisition-time curve (0 = config)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := run(ctx, opts, webPort, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, opts cliOptions, webPort *webPortFlag, stdout, stderr io.Writer) int {
	if err := validateCLIOverrides(opts); err != nil {
		fmt.Fprintf(stderr, "invalid CLI override: %v\n", err)
		return exitError
	}

	// Load configuration
	if err := config.ValidateConfigPath(opts.cfgPath); err != nil {
		fmt.Fprintf(stderr, "invalid config path: %v\n", err)
		return exitError
	}
	cfg, err := config.Load(opts.cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "load config failed: %v\n", err)
		return exitError
	}

	// Initialize debug system; stdout is reserved for the report
	debug.SetOutput(stderr)
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", opts.cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Scanner", cfg.Scanner.Model)

	debug.Step(1, "Applying overrides")
	in, notices := opts.overrides().Apply(cfg.Inputs())
	debug.PrintStruct("Inputs", in)
	for _, n := range notices {
		debug.Warn("%s", n)
	}

	if webPort != nil && webPort.enabled() {
		return serveWeb(ctx, cfg, in, webPort.port(cfg.Web.Port), stderr)
	}

	debug.Step(2, "Evaluating")
	ev := scan.Evaluate(in)
	id := uuid.New().String()
	debug.Evaluation(id, ev.Validation.OK(), len(ev.Validation.Violations))

	rep, err := report.Build(ev, report.Meta{ID: id, Scanner: cfg.Scanner.Model, Notices: notices})
	if err != nil {
		fmt.Fprintf(stderr, "build report: %v\n", err)
		return exitError
	}
	if rep.Valid {
		m := rep.Metrics
		debug.Summary(fmt.Sprintf("T = %s s, PT = %s points",
			numfmt.MustFormat(m.Duration, 2), numfmt.MustFormat(m.TotalPoints, 0)))
	}
	if err := writeReport(stdout, opts.output, rep); err != nil {
		fmt.Fprintf(stderr, "write report: %v\n", err)
		return exitError
	}

	if !rep.Valid {
		return exitInvalid
	}

	if opts.plotDir != "" {
		debug.Step(3, "Writing plots")
		samples := opts.samples
		if samples == 0 {
			samples = cfg.Chart.Samples
		}
		pts, err := sensitivity.Curve(in, samples)
		if err != nil {
			fmt.Fprintf(stderr, "sensitivity curve: %v\n", err)
			return exitError
		}
		files, err := render.SavePlots(opts.plotDir, pts)
		if err != nil {
			fmt.Fprintf(stderr, "save plots: %v\n", err)
			return exitError
		}
		for _, f := range files {
			debug.Info("Plot written: %s", f)
		}
	}

	return exitOK
}

// serveWeb runs the web UI until ctx is cancelled. The form starts from in,
// so CLI overrides become the web defaults.
func serveWeb(ctx context.Context, cfg *config.Config, in scan.Inputs, port int, stderr io.Writer) int {
	broadcaster := web.NewStatusBroadcaster()
	debug.SetOutput(io.MultiWriter(stderr, web.LogWriter(broadcaster)))

	cfgYAML, err := cfg.YAML()
	if err != nil {
		fmt.Fprintf(stderr, "encode config: %v\n", err)
		return exitError
	}

	formDefaults := web.FormConfig{
		Scanner:  cfg.Scanner.Model,
		Defaults: in,
		Samples:  cfg.Chart.Samples,
	}
	srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, formDefaults, cfgYAML)
	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "web server: %v\n", err)
		return exitError
	}
	return exitOK
}

func writeReport(w io.Writer, format string, rep *report.Report) error {
	switch format {
	case "text":
		return report.WriteText(w, rep)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// validateCLIOverrides rejects flag values that cannot mean anything.
// Values that are well-formed but out of the scanner's range are left to
// scan.Validate so the user gets the same messages as in the web UI.
func validateCLIOverrides(opts cliOptions) error {
	angles := []struct {
		name string
		v    int
	}{
		{"phi_start", opts.phiStart},
		{"phi_stop", opts.phiStop},
		{"theta_start", opts.thetaStart},
		{"theta_stop", opts.thetaStop},
	}
	for _, a := range angles {
		if a.v < keepAngle {
			return fmt.Errorf("%s must be -1 (use config) or a non-negative angle, got %d", a.name, a.v)
		}
	}
	if opts.freq < 0 {
		return fmt.Errorf("freq must be 0 (use config) or a frequency in Hz, got %d", opts.freq)
	}
	if opts.samples != 0 && (opts.samples < sensitivity.MinSamples || opts.samples > sensitivity.MaxSamples) {
		return fmt.Errorf("samples must be between %d and %d, got %d", sensitivity.MinSamples, sensitivity.MaxSamples, opts.samples)
	}
	switch opts.output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("output must be text, json or yaml, got %q", opts.output)
	}
	return nil
}

// overrides converts the flags to the overrides the web UI uses.
func (o cliOptions) overrides() web.Overrides {
	angle := func(v int) *int {
		if v == keepAngle {
			return nil
		}
		return web.IntPtr(v)
	}
	return web.Overrides{
		PhiStart:       angle(o.phiStart),
		PhiStop:        angle(o.phiStop),
		PhiIncrement:   web.FreeText(o.phiInc),
		ThetaStart:     angle(o.thetaStart),
		ThetaStop:      angle(o.thetaStop),
		ThetaIncrement: web.FreeText(o.thetaInc),
		PulseFrequency: o.freq,
	}
}

// webPortFlag implements flag.Value for -web: unset = disabled, -web= → configured port, -web 8980 → 8980.
type webPortFlag struct {
	val        int
	useDefault bool
}

func (w *webPortFlag) String() string {
	if w == nil || w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.useDefault = true
		w.val = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	w.useDefault = false
	return nil
}

func (w *webPortFlag) enabled() bool { return w.useDefault || w.val > 0 }

// port returns the chosen port, or defaultPort for -web=.
func (w *webPortFlag) port(defaultPort int) int {
	if w.useDefault {
		return defaultPort
	}
	return w.val
}
