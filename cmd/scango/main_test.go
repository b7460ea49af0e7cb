package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/ScanGo/internal/config"
	"github.com/cjeanneret/ScanGo/internal/debug"
	"github.com/cjeanneret/ScanGo/internal/logic/report"
	"github.com/cjeanneret/ScanGo/internal/logic/scan"
	"github.com/cjeanneret/ScanGo/internal/render"
	"github.com/cjeanneret/ScanGo/internal/web"
)

const testConfigYAML = `scanner:
  model: "RIEGL VZ-400"
defaults:
  phi_start_deg: 0
  phi_stop_deg: 180
  phi_increment_deg: 0.05
  theta_start_deg: 30
  theta_stop_deg: 100
  theta_increment_deg: 0.05
  pulse_frequency_hz: 100000
  debug_level: 0
chart:
  samples: 8
`

// writeTestConfig writes testConfigYAML to <tmp>/configs/default.yaml.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	return writeTestConfigAtLevel(t, 0)
}

// writeTestConfigAtLevel writes testConfigYAML with the given debug_level.
// The debug logger is reset when the test ends.
func writeTestConfigAtLevel(t *testing.T, level int) string {
	t.Helper()
	t.Cleanup(func() {
		debug.SetOutput(os.Stderr)
		debug.Init(debug.LevelOff)
	})
	body := strings.Replace(testConfigYAML, "debug_level: 0", fmt.Sprintf("debug_level: %d", level), 1)
	dir := filepath.Join(t.TempDir(), "configs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "default.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func defaultOpts(cfgPath string) cliOptions {
	return cliOptions{
		cfgPath:    cfgPath,
		phiStart:   keepAngle,
		phiStop:    keepAngle,
		thetaStart: keepAngle,
		thetaStop:  keepAngle,
		output:     "text",
	}
}

func runCLI(t *testing.T, opts cliOptions) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), opts, &webPortFlag{}, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// ---------- validateCLIOverrides ----------

func TestValidateCLIOverrides_Defaults(t *testing.T) {
	if err := validateCLIOverrides(defaultOpts("configs/default.yaml")); err != nil {
		t.Errorf("default flags should be valid, got: %v", err)
	}
}

func TestValidateCLIOverrides_Valid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*cliOptions)
	}{
		{"zero_angles", func(o *cliOptions) { o.phiStart, o.thetaStart = 0, 0 }},
		{"out_of_scanner_range", func(o *cliOptions) { o.thetaStop = 500 }}, // left to scan.Validate
		{"freq", func(o *cliOptions) { o.freq = 300000 }},
		{"min_samples", func(o *cliOptions) { o.samples = 2 }},
		{"max_samples", func(o *cliOptions) { o.samples = 500 }},
		{"json", func(o *cliOptions) { o.output = "json" }},
		{"yaml", func(o *cliOptions) { o.output = "yaml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := defaultOpts("configs/default.yaml")
			tc.mutate(&o)
			if err := validateCLIOverrides(o); err != nil {
				t.Errorf("expected valid, got: %v", err)
			}
		})
	}
}

func TestValidateCLIOverrides_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*cliOptions)
	}{
		{"phi_start_below_sentinel", func(o *cliOptions) { o.phiStart = -2 }},
		{"theta_stop_negative", func(o *cliOptions) { o.thetaStop = -30 }},
		{"negative_freq", func(o *cliOptions) { o.freq = -1 }},
		{"one_sample", func(o *cliOptions) { o.samples = 1 }},
		{"too_many_samples", func(o *cliOptions) { o.samples = 501 }},
		{"unknown_output", func(o *cliOptions) { o.output = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := defaultOpts("configs/default.yaml")
			tc.mutate(&o)
			if err := validateCLIOverrides(o); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// ---------- webPortFlag ----------

func TestWebPortFlag_EmptyString(t *testing.T) {
	w := &webPortFlag{}
	if err := w.Set(""); err != nil {
		t.Fatalf("Set(\"\") error: %v", err)
	}
	if !w.enabled() {
		t.Error("-web= should enable the server")
	}
	if got := w.port(8080); got != 8080 {
		t.Errorf("port = %d, want configured 8080", got)
	}
	if got := w.port(9090); got != 9090 {
		t.Errorf("port = %d, want configured 9090", got)
	}
}

func TestWebPortFlag_ValidPorts(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{"1", 1},
		{"80", 80},
		{"8080", 8080},
		{"8980", 8980},
		{"65535", 65535},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			w := &webPortFlag{}
			if err := w.Set(tc.input); err != nil {
				t.Fatalf("Set(%q) error: %v", tc.input, err)
			}
			if got := w.port(8080); got != tc.want {
				t.Errorf("port = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestWebPortFlag_InvalidPorts(t *testing.T) {
	for _, input := range []string{"0", "-1", "65536", "abc", "80.5"} {
		t.Run(input, func(t *testing.T) {
			w := &webPortFlag{}
			if err := w.Set(input); err == nil {
				t.Errorf("Set(%q) should fail", input)
			}
			if w.enabled() {
				t.Errorf("Set(%q) failed but enabled the server", input)
			}
		})
	}
}

func TestWebPortFlag_String(t *testing.T) {
	w := &webPortFlag{}
	if s := w.String(); s != "0" {
		t.Errorf("unset String = %q, want \"0\"", s)
	}
	w.Set("8980")
	if s := w.String(); s != "8980" {
		t.Errorf("String = %q, want \"8980\"", s)
	}
}

// ---------- overrides ----------

func TestOverrides_KeepAngleMapsToNil(t *testing.T) {
	o := defaultOpts("configs/default.yaml").overrides()
	if o.PhiStart != nil || o.PhiStop != nil || o.ThetaStart != nil || o.ThetaStop != nil {
		t.Errorf("keepAngle should leave angles unset: %+v", o)
	}
	if o.PulseFrequency != 0 || o.PhiIncrement != "" || o.ThetaIncrement != "" {
		t.Errorf("unset flags should not override: %+v", o)
	}
}

func TestOverrides_CLIAndWebProduceSameResult(t *testing.T) {
	opts := defaultOpts("configs/default.yaml")
	opts.phiStart, opts.phiStop = 0, 360
	opts.phiInc, opts.thetaInc = "0,1", "0,1"
	opts.freq = 300000
	fromCLI, cliNotices := opts.overrides().Apply(scan.DefaultInputs())

	var o web.Overrides
	body := `{"phi_start":0,"phi_stop":360,"phi_increment":"0,1","theta_increment":0.1,"pulse_frequency":300000}`
	if err := json.Unmarshal([]byte(body), &o); err != nil {
		t.Fatal(err)
	}
	fromWeb, webNotices := o.Apply(scan.DefaultInputs())

	if fromCLI != fromWeb {
		t.Errorf("CLI %+v != web %+v", fromCLI, fromWeb)
	}
	if len(cliNotices) != 0 || len(webNotices) != 0 {
		t.Errorf("unexpected notices: %v / %v", cliNotices, webNotices)
	}
}

// ---------- run ----------

func TestRun_TextOutput(t *testing.T) {
	code, out, errOut := runCLI(t, defaultOpts(writeTestConfig(t)))
	if code != exitOK {
		t.Fatalf("exit = %d, stderr %q", code, errOut)
	}
	for _, want := range []string{"RIEGL VZ-400", "Frequency   100 kHz", "5.040.000", "105,88"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_JSONOutput(t *testing.T) {
	opts := defaultOpts(writeTestConfig(t))
	opts.output = "json"
	opts.freq = 300000

	code, out, errOut := runCLI(t, opts)
	if code != exitOK {
		t.Fatalf("exit = %d, stderr %q", code, errOut)
	}
	var rep report.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if rep.Metrics == nil || rep.Metrics.LineRate != 100 {
		t.Errorf("Metrics = %+v, want N = 100 at 300 kHz", rep.Metrics)
	}
}

func TestRun_JSONOutputWithDebugLog(t *testing.T) {
	for _, level := range []int{debug.LevelInfo, debug.LevelTrace} {
		t.Run(fmt.Sprintf("level_%d", level), func(t *testing.T) {
			opts := defaultOpts(writeTestConfigAtLevel(t, level))
			opts.output = "json"

			code, out, errOut := runCLI(t, opts)
			if code != exitOK {
				t.Fatalf("exit = %d, stderr %q", code, errOut)
			}

			dec := json.NewDecoder(strings.NewReader(out))
			var rep report.Report
			if err := dec.Decode(&rep); err != nil {
				t.Fatalf("stdout is not a JSON report: %v\n%s", err, out)
			}
			if dec.More() {
				t.Errorf("stdout has data after the report:\n%s", out)
			}
			if strings.Contains(out, "[ScanGo]") {
				t.Errorf("debug lines leaked to stdout:\n%s", out)
			}
			if !strings.Contains(errOut, "[ScanGo]") || !strings.Contains(errOut, "PT = 5.040.000 points") {
				t.Errorf("stderr should carry the debug log with the summary, got:\n%s", errOut)
			}
		})
	}
}

func TestRun_YAMLOutputWithDebugLog(t *testing.T) {
	opts := defaultOpts(writeTestConfigAtLevel(t, debug.LevelVerbose))
	opts.output = "yaml"

	code, out, errOut := runCLI(t, opts)
	if code != exitOK {
		t.Fatalf("exit = %d, stderr %q", code, errOut)
	}
	var rep report.Report
	if err := yaml.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("stdout is not a YAML report: %v\n%s", err, out)
	}
	if rep.Metrics == nil || rep.Metrics.DurationRounded != 106 {
		t.Errorf("Metrics = %+v, want ceil(T) = 106", rep.Metrics)
	}
	if !strings.Contains(errOut, "[VERBOSE] N = 34 lines/s") {
		t.Errorf("stderr should carry the intermediate values, got:\n%s", errOut)
	}
}

func TestRun_YAMLOutput(t *testing.T) {
	opts := defaultOpts(writeTestConfig(t))
	opts.output = "yaml"

	code, out, errOut := runCLI(t, opts)
	if code != exitOK {
		t.Fatalf("exit = %d, stderr %q", code, errOut)
	}
	if !strings.Contains(out, "duration_rounded: 106") {
		t.Errorf("yaml output missing duration_rounded:\n%s", out)
	}
}

func TestRun_InvalidInputsExit2(t *testing.T) {
	opts := defaultOpts(writeTestConfig(t))
	opts.phiStart, opts.phiStop = 200, 100

	code, out, _ := runCLI(t, opts)
	if code != exitInvalid {
		t.Errorf("exit = %d, want %d", code, exitInvalid)
	}
	if !strings.Contains(out, "PHI start angle must be less than PHI stop angle.") {
		t.Errorf("output should list the violation:\n%s", out)
	}
}

func TestRun_IncrementNotice(t *testing.T) {
	opts := defaultOpts(writeTestConfig(t))
	opts.phiInc = "abc"

	code, out, _ := runCLI(t, opts)
	if code != exitOK {
		t.Errorf("exit = %d, want %d (fallback keeps inputs valid)", code, exitOK)
	}
	if !strings.Contains(out, "note: phi_increment") {
		t.Errorf("output should carry the fallback notice:\n%s", out)
	}
}

func TestRun_ConfigErrors(t *testing.T) {
	outside := filepath.Join(t.TempDir(), "scan.yaml")
	os.WriteFile(outside, []byte(testConfigYAML), 0o644)

	cases := []struct {
		name string
		path string
	}{
		{"not_in_configs_dir", outside},
		{"missing_file", filepath.Join(t.TempDir(), "configs", "missing.yaml")},
		{"wrong_extension", "configs/default.yml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, defaultOpts(tc.path))
			if code != exitError {
				t.Errorf("exit = %d, want %d", code, exitError)
			}
			if errOut == "" {
				t.Error("expected an error on stderr")
			}
		})
	}
}

func TestRun_InvalidOverrideExit1(t *testing.T) {
	opts := defaultOpts(writeTestConfig(t))
	opts.output = "xml"

	code, out, _ := runCLI(t, opts)
	if code != exitError {
		t.Errorf("exit = %d, want %d", code, exitError)
	}
	if out != "" {
		t.Errorf("nothing should be printed on stdout, got %q", out)
	}
}

func TestRun_PlotDir(t *testing.T) {
	opts := defaultOpts(writeTestConfig(t))
	opts.plotDir = filepath.Join(t.TempDir(), "plots")
	opts.samples = 5

	code, _, errOut := runCLI(t, opts)
	if code != exitOK {
		t.Fatalf("exit = %d, stderr %q", code, errOut)
	}
	for _, name := range []string{render.DurationPlotFile, render.PointsPlotFile} {
		if _, err := os.Stat(filepath.Join(opts.plotDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestRun_PlotsSkippedWhenInvalid(t *testing.T) {
	opts := defaultOpts(writeTestConfig(t))
	opts.plotDir = filepath.Join(t.TempDir(), "plots")
	opts.thetaStart, opts.thetaStop = 100, 30

	code, _, _ := runCLI(t, opts)
	if code != exitInvalid {
		t.Errorf("exit = %d, want %d", code, exitInvalid)
	}
	if _, err := os.Stat(opts.plotDir); !os.IsNotExist(err) {
		t.Errorf("plot dir should not be created for invalid inputs, stat err = %v", err)
	}
}

func TestRun_RepositoryConfig(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "default.yaml")
	if _, err := config.Load(path); err != nil {
		t.Fatalf("repository config: %v", err)
	}
	opts := defaultOpts(path)
	opts.output = "json"
	code, _, errOut := runCLI(t, opts)
	if code != exitOK {
		t.Errorf("exit = %d, stderr %q", code, errOut)
	}
}
