package output

import (
	"bytes"
	"testing"

	"github.com/aryankumar/atlas-report/internal/report"
	"github.com/google/go-cmp/cmp"
)

func TestCSVFormatter_Format(t *testing.T) {
	const header = "generated_at,project_name,cluster_name,tier,cluster_type,provider,region,version,state,pit,disk_size_gb\n"
	const analytics = "2026-01-02T03:04:05Z,alpha,analytics,M50,SHARDED,AWS,US_EAST_1,7.0,IDLE,No,512.5\n"
	const web = "2026-01-02T03:04:05Z,alpha,web,M30,REPLICASET,AWS,US_EAST_1,6.0,IDLE,Yes,40.0\n"
	const beta = "2026-01-02T03:04:05Z,beta,,,,,,,,,\n"

	tests := []struct {
		name string
		key  report.SortKey
		opts *Options
		want string
	}{
		{
			name: "project sort",
			key:  report.SortProject,
			want: header + analytics + web + beta,
		},
		{
			name: "tier sort",
			key:  report.SortTier,
			want: header + web + analytics + beta,
		},
		{
			name: "no headers",
			key:  report.SortProject,
			opts: &Options{NoHeaders: true},
			want: analytics + web + beta,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewCSVFormatter(tt.opts).Format(&buf, sampleReport(tt.key)); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, buf.String()); diff != "" {
				t.Errorf("csv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCSVFormatter_Quoting(t *testing.T) {
	r := sampleReport(report.SortProject)
	r.Rows[0].Project.Name = "alpha, inc"

	var buf bytes.Buffer
	if err := NewCSVFormatter(&Options{NoHeaders: true}).Format(&buf, r); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`,"alpha, inc",analytics,`)) {
		t.Errorf("comma in project name not quoted:\n%s", buf.String())
	}
}
