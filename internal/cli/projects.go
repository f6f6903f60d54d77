package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aryankumar/atlas-report/internal/atlas"
	"github.com/aryankumar/atlas-report/internal/inventory"
	"github.com/aryankumar/atlas-report/internal/output"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// projectsCmd lists the projects a report would cover, without fetching clusters
func (a *app) projectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List the projects matched by the filters",
		Long: `List the Atlas projects visible to the API key after applying
--project and --exclude-project, without fetching any clusters. Useful for
checking glob patterns before a full report.`,
		Example: `  atlas-report projects --project "prod-*" --exclude-project "*-tools"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProjects(cmd.Context())
		},
	}
}

func (a *app) runProjects(ctx context.Context) error {
	s, err := a.newSession()
	if err != nil {
		return err
	}
	defer s.client.Close()

	projects, err := inventory.NewEnumerator(s.client, s.paging, a.logger).
		ListProjects(ctx, a.cfg.Include, a.cfg.Exclude)
	if err != nil {
		return err
	}
	return a.printProjects(projects)
}

func (a *app) printProjects(projects []atlas.Project) error {
	colors := output.NewColorScheme(a.stdout, a.cfg.NoColor, a.cfg.ForceColor)

	table := tablewriter.NewWriter(a.stdout)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	table.SetHeader([]string{"NAME", "ID", "CLUSTERS", "CREATED"})
	for _, p := range projects {
		table.Append([]string{
			colors.ProjectName("%s", p.Name),
			p.ID,
			strconv.Itoa(p.ClusterCount),
			p.Created,
		})
	}
	table.Render()

	fmt.Fprintf(a.stdout, "\nProjects: %d\n", len(projects))
	return nil
}
