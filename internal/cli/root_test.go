package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aryankumar/atlas-report/internal/atlas"
	"github.com/aryankumar/atlas-report/internal/atlas/atlastest"
	"github.com/aryankumar/atlas-report/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// testApp runs commands against a fake Atlas API with isolated config dirs
type testApp struct {
	srv    *atlastest.Server
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	t.Setenv("ATLAS_PUBLIC_KEY", "pub")
	t.Setenv("ATLAS_PRIVATE_KEY", "priv")

	srv := atlastest.NewServer()
	t.Cleanup(srv.Close)

	srv.AddProject(atlas.Project{ID: "p-alpha", Name: "alpha", ClusterCount: 2},
		testCluster("web", "M30", 40),
		testCluster("analytics", "M50", 512.5),
	)
	srv.AddProject(atlas.Project{ID: "p-beta", Name: "beta"})

	return &testApp{srv: srv, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
}

func testCluster(name, tier string, diskGB float64) atlas.Cluster {
	return atlas.Cluster{
		Name:           name,
		ClusterType:    "REPLICASET",
		StateName:      "IDLE",
		MongoDBVersion: "7.0.12",
		DiskSizeGB:     diskGB,
		ProviderSettings: atlas.ProviderSettings{
			ProviderName:     "AWS",
			InstanceSizeName: tier,
			RegionName:       "US_EAST_1",
		},
	}
}

// run executes the root command with the fake server's base URL prepended
func (ta *testApp) run(t *testing.T, args ...string) error {
	t.Helper()
	a := &app{
		viper:   viper.New(),
		stdout:  ta.stdout,
		stderr:  ta.stderr,
		workDir: t.TempDir(),
		homeDir: t.TempDir(),
	}
	cmd := a.rootCmd()
	cmd.SetArgs(append([]string{"--base-url", ta.srv.URL(), "--no-color"}, args...))
	return cmd.ExecuteContext(context.Background())
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCmd()

	if cmd == nil {
		t.Fatal("expected root command, got nil")
	}

	if cmd.Use != "atlas-report" {
		t.Errorf("expected use 'atlas-report', got %q", cmd.Use)
	}

	// Verify subcommands are registered
	expectedCommands := []string{
		"projects",
		"version",
		"completion",
	}

	for _, cmdName := range expectedCommands {
		if findCommand(cmd, cmdName) == nil {
			t.Errorf("expected subcommand %q to be registered", cmdName)
		}
	}
}

func findCommand(root *cobra.Command, name string) *cobra.Command {
	for _, c := range root.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func TestRootCommandHelp(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--help"})

	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(output)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	help := output.String()
	for _, want := range []string{"Atlas Report", "MongoDB Atlas", "projects", "version", "--sort-by", "--exclude-project"} {
		if !strings.Contains(help, want) {
			t.Errorf("expected help to contain %q", want)
		}
	}
}

func TestRootCommandFlagDefaults(t *testing.T) {
	cmd := newRootCmd()

	tests := []struct {
		flag     string
		expected string
	}{
		{flag: "config", expected: ""},
		{flag: "base-url", expected: atlas.DefaultBaseURL},
		{flag: "items-per-page", expected: "500"},
		{flag: "max-attempts", expected: "5"},
		{flag: "max-workers", expected: "20"},
		{flag: "timeout", expected: "30"},
		{flag: "timeout-total", expected: "0"},
		{flag: "sort-by", expected: "project"},
		{flag: "highlight-threshold", expected: "30"},
		{flag: "output", expected: ""},
		{flag: "no-color", expected: "false"},
		{flag: "log-format", expected: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tt.flag)
			if flag == nil {
				t.Fatalf("flag %q not found", tt.flag)
			}

			if flag.DefValue != tt.expected {
				t.Errorf("expected default value %q, got %q", tt.expected, flag.DefValue)
			}
		})
	}
}

func TestRootCommandSilenceFlags(t *testing.T) {
	cmd := newRootCmd()

	if !cmd.SilenceUsage {
		t.Error("expected SilenceUsage to be true")
	}

	if !cmd.SilenceErrors {
		t.Error("expected SilenceErrors to be true")
	}
}

func TestRootCommandShortFlags(t *testing.T) {
	cmd := newRootCmd()

	shortFlags := map[string]string{
		"q": "quiet",
		"v": "verbose",
	}

	for short, long := range shortFlags {
		shortFlag := cmd.PersistentFlags().ShorthandLookup(short)
		if shortFlag == nil {
			t.Errorf("expected short flag -%s for %s", short, long)
			continue
		}

		if shortFlag.Name != long {
			t.Errorf("expected short flag -%s to map to %s, got %s", short, long, shortFlag.Name)
		}
	}
}

func TestReport_Table(t *testing.T) {
	ta := newTestApp(t)

	if err := ta.run(t); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := ta.stdout.String()
	for _, want := range []string{"alpha", "web", "analytics", "M50", "beta", "Clusters: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected report to contain %q, got:\n%s", want, out)
		}
	}
	if !strings.Contains(ta.stderr.String(), "Metrics:") {
		t.Errorf("expected run metrics on stderr, got:\n%s", ta.stderr.String())
	}
}

func TestReport_Partial(t *testing.T) {
	ta := newTestApp(t)
	ta.srv.AddProject(atlas.Project{ID: "p-gamma", Name: "gamma"})
	ta.srv.FailAlways(atlas.ClustersPath("p-gamma"), atlastest.Failure{StatusCode: 404, Detail: "group not found"})

	err := ta.run(t)
	if code := util.ExitCode(err); code != util.ExitPartial {
		t.Fatalf("exit code = %d, want %d (err %v)", code, util.ExitPartial, err)
	}
	if !errors.Is(err, util.ErrPartialReport) {
		t.Errorf("expected ErrPartialReport, got %v", err)
	}

	out := ta.stdout.String()
	if !strings.Contains(out, "Failed projects: 1") || !strings.Contains(out, "gamma") {
		t.Errorf("expected failed project section, got:\n%s", out)
	}
	if !strings.Contains(out, "web") {
		t.Errorf("expected healthy projects to still be reported, got:\n%s", out)
	}
	if !strings.Contains(ta.stderr.String(), "project missing from report") {
		t.Errorf("expected a warning for the failed project, got:\n%s", ta.stderr.String())
	}
}

func TestReport_JSONToStdout(t *testing.T) {
	ta := newTestApp(t)

	if err := ta.run(t, "-q", "--output-format", "json", "--sort-by", "disk"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc struct {
		RunID  string `json:"run_id"`
		SortBy string `json:"sort_by"`
		Summary struct {
			Clusters int `json:"clusters"`
		} `json:"summary"`
		Projects []struct {
			ProjectName string `json:"project_name"`
			Clusters    []struct {
				Name string `json:"name"`
			} `json:"clusters"`
		} `json:"projects"`
	}
	if err := json.Unmarshal(ta.stdout.Bytes(), &doc); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, ta.stdout.String())
	}

	if doc.RunID == "" {
		t.Error("expected a run id")
	}
	if doc.SortBy != "disk" {
		t.Errorf("sort_by = %q, want disk", doc.SortBy)
	}
	if doc.Summary.Clusters != 2 {
		t.Errorf("summary clusters = %d, want 2", doc.Summary.Clusters)
	}
	if len(doc.Projects) == 0 || doc.Projects[0].ProjectName != "alpha" {
		t.Fatalf("projects = %+v, want alpha first", doc.Projects)
	}
	if got := doc.Projects[0].Clusters[0].Name; got != "analytics" {
		t.Errorf("largest disk first: got %q, want analytics", got)
	}
	if ta.stderr.Len() != 0 {
		t.Errorf("quiet run wrote to stderr:\n%s", ta.stderr.String())
	}
}

func TestReport_ProjectFilter(t *testing.T) {
	ta := newTestApp(t)

	if err := ta.run(t, "-q", "--output-format", "csv", "--exclude-project", "al*"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := ta.stdout.String()
	if strings.Contains(out, "alpha") {
		t.Errorf("excluded project reported:\n%s", out)
	}
	if !strings.Contains(out, "beta") {
		t.Errorf("expected beta in report:\n%s", out)
	}
	if n := ta.srv.Requests(atlas.ClustersPath("p-alpha")); n != 0 {
		t.Errorf("excluded project was fetched %d times", n)
	}
}

func TestReport_ExportAndMetricsFile(t *testing.T) {
	ta := newTestApp(t)
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "out", "report.yaml")
	metricsPath := filepath.Join(dir, "metrics.prom")

	if err := ta.run(t, "--output", exportPath, "--metrics-file", metricsPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("export not written: %v", err)
	}
	for _, want := range []string{"run_id:", "project_name: alpha", "name: analytics", "elapsed_ms:"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected export to contain %q, got:\n%s", want, data)
		}
	}

	// the table still goes to stdout
	if !strings.Contains(ta.stdout.String(), "analytics") {
		t.Errorf("expected table on stdout, got:\n%s", ta.stdout.String())
	}

	metrics, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	for _, want := range []string{"atlas_report_requests_total", "atlas_report_clusters 2"} {
		if !strings.Contains(string(metrics), want) {
			t.Errorf("expected metrics file to contain %q, got:\n%s", want, metrics)
		}
	}
}

func TestReport_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		setup   func(t *testing.T)
		wantMsg string
	}{
		{
			name: "missing credentials",
			setup: func(t *testing.T) {
				t.Setenv("ATLAS_PUBLIC_KEY", "")
				t.Setenv("ATLAS_PRIVATE_KEY", "")
			},
			wantMsg: "public-key",
		},
		{
			name:    "unknown sort key",
			args:    []string{"--sort-by", "size"},
			wantMsg: "sort-by",
		},
		{
			name:    "page size above limit",
			args:    []string{"--items-per-page", "501"},
			wantMsg: "items-per-page",
		},
		{
			name:    "unknown export extension",
			args:    []string{"--output", "report.txt"},
			wantMsg: "output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)
			if tt.setup != nil {
				tt.setup(t)
			}

			err := ta.run(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, util.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if code := util.ExitCode(err); code != util.ExitFatal {
				t.Errorf("exit code = %d, want %d", code, util.ExitFatal)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
			if n := ta.srv.TotalRequests(); n != 0 {
				t.Errorf("invalid config still sent %d requests", n)
			}
		})
	}
}

func TestReport_AuthFailureIsFatal(t *testing.T) {
	ta := newTestApp(t)
	ta.srv.FailAlways(atlas.ProjectsPath, atlastest.Failure{StatusCode: 401, Detail: "bad key"})

	err := ta.run(t, "-q")
	if code := util.ExitCode(err); code != util.ExitFatal {
		t.Fatalf("exit code = %d, want %d (err %v)", code, util.ExitFatal, err)
	}
	if !atlas.IsAuthFailure(err) {
		t.Errorf("expected an auth failure, got %v", err)
	}
	if ta.stdout.Len() != 0 {
		t.Errorf("no report expected on enumeration failure, got:\n%s", ta.stdout.String())
	}
}

func TestProjectsCommand(t *testing.T) {
	ta := newTestApp(t)

	if err := ta.run(t, "projects", "--project", "a*"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := ta.stdout.String()
	for _, want := range []string{"NAME", "CLUSTERS", "alpha", "p-alpha", "Projects: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "beta") {
		t.Errorf("filtered project listed:\n%s", out)
	}
	if n := ta.srv.Requests(atlas.ClustersPath("p-alpha")); n != 0 {
		t.Errorf("projects command fetched clusters %d times", n)
	}
}

func TestVersionCommand(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "", want: "atlas-report"},
		{format: "json", want: `"version"`},
		{format: "yaml", want: "version:"},
		{format: "table", want: "Version"},
		{format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("format="+tt.format, func(t *testing.T) {
			// no credentials needed
			t.Setenv("ATLAS_PUBLIC_KEY", "")
			cmd := newRootCmd()
			output := &bytes.Buffer{}
			cmd.SetOut(output)
			cmd.SetErr(output)

			args := []string{"version"}
			if tt.format != "" {
				args = append(args, "--format", tt.format)
			}
			cmd.SetArgs(args)

			err := cmd.Execute()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(output.String(), tt.want) {
				t.Errorf("expected %q in output, got:\n%s", tt.want, output.String())
			}
		})
	}
}
