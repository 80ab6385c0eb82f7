package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Swap-nul/statusoverview/internal/catalog"
	"github.com/Swap-nul/statusoverview/internal/overview"
)

var (
	appsProject string
	appsEnv     string
	appsSort    string
	appsDesc    bool
	appsFormat  string
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Print the apps of a project",
	Long: `Print every app of a project with what it runs per environment.

With --env the table shows that environment in detail; without it, one tag
column per configured environment. --format csv writes the same rows as the
dashboard export and requires --env.`,
	RunE: runApps,
}

func init() {
	appsCmd.Flags().StringVar(&appsProject, "project", "", "project (parent) name")
	appsCmd.Flags().StringVar(&appsEnv, "env", "", "environment to show or sort by")
	appsCmd.Flags().StringVar(&appsSort, "sort", "", "sort field: name or a deployment field such as tag")
	appsCmd.Flags().BoolVar(&appsDesc, "desc", false, "sort descending")
	appsCmd.Flags().StringVar(&appsFormat, "format", "table", "output format: table or csv")
	_ = appsCmd.MarkFlagRequired("project")
}

func runApps(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Bootstrap.Timeout)
	defer cancel()
	defer app.close()

	q := overview.AppQuery{SortBy: appsSort, Env: appsEnv, Direction: catalog.Asc}
	if appsDesc {
		q.Direction = catalog.Desc
	}

	switch appsFormat {
	case "csv":
		return app.overview.Export(ctx, appsProject, appsEnv, q, os.Stdout)
	case "table":
		apps, err := app.overview.ProjectApps(ctx, appsProject, q)
		if err != nil {
			return err
		}
		if appsEnv != "" {
			renderEnvTable(os.Stdout, appsEnv, apps)
		} else {
			renderOverviewTable(os.Stdout, cfg.Dashboard.Environments, apps)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want table or csv)", appsFormat)
	}
}

// renderOverviewTable prints one row per app with its tag in every env.
func renderOverviewTable(w io.Writer, envs []string, apps []catalog.App) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(append([]string{"app"}, envs...))

	for i := range apps {
		row := make([]string, 0, len(envs)+1)
		row = append(row, apps[i].Name)
		for _, env := range envs {
			tag := "-"
			if d := apps[i].Deployment(env); d != nil && d.Tag != "" {
				tag = d.Tag
			}
			row = append(row, tag)
		}
		tw.Append(row)
	}

	tw.Render()
}

// renderEnvTable prints the deployment details of every app in env. Apps not
// deployed there are left out.
func renderEnvTable(w io.Writer, env string, apps []catalog.App) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"app", "tag", "branch", "status", "deployed at", "deployed by", "latest build"})

	for i := range apps {
		d := apps[i].Deployment(env)
		if d == nil {
			continue
		}
		tw.Append([]string{apps[i].Name, d.Tag, d.Branch, d.Status, d.ImageDeployedAt, d.ImageDeployedBy, d.LatestBuildTag})
	}

	tw.Render()
}
