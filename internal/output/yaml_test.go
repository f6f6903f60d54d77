package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aryankumar/atlas-report/internal/report"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestNewYAMLFormatter(t *testing.T) {
	formatter := NewYAMLFormatter(nil)
	if formatter == nil {
		t.Fatal("NewYAMLFormatter returned nil")
	}
	if formatter.options == nil {
		t.Error("formatter.options is nil")
	}
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	if err := NewYAMLFormatter(nil).Format(&buf, sampleReport(report.SortProject)); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"generated_at: \"2026-01-02T03:04:05Z\"",
		"sort_by: project",
		"project_name: alpha",
		"tier: M50",
		"kind: not_found",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	var got document
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, out)
	}

	want := newDocument(sampleReport(report.SortProject))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestYAMLFormatter_Indentation(t *testing.T) {
	var buf bytes.Buffer
	if err := NewYAMLFormatter(nil).Format(&buf, sampleReport(report.SortProject)); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(l, "\t") {
			t.Errorf("line indented with a tab: %q", l)
		}
	}
	if !strings.Contains(buf.String(), "\n  projects_attempted: 3\n") {
		t.Errorf("summary not indented by two spaces:\n%s", buf.String())
	}
}
