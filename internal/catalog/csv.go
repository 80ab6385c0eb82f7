package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

var csvHeader = []string{
	"appName", "tag", "branch", "status", "cluster", "commitBy", "commitId",
	"namespace", "commitMessage", "imageCreatedAt", "imageDeployedAt",
	"imageDeployedBy", "latestBuildTag",
}

// WriteCSV writes one row per app deployed in env. Non-empty cells are wrapped
// in single quotes with newlines stripped so spreadsheet tools keep tags and
// SHAs as text. Apps not deployed in env are skipped; an empty result still
// carries the header row.
func WriteCSV(w io.Writer, env string, apps []App) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for i := range apps {
		d := apps[i].Deployment(env)
		if d == nil {
			continue
		}
		row := []string{
			quoteCell(apps[i].Name),
			quoteCell(d.Tag),
			quoteCell(d.Branch),
			quoteCell(d.Status),
			quoteCell(d.Cluster),
			quoteCell(d.CommitBy),
			quoteCell(d.CommitID),
			quoteCell(d.Namespace),
			quoteCell(d.CommitMessage),
			quoteCell(d.ImageCreatedAt),
			quoteCell(d.ImageDeployedAt),
			quoteCell(d.ImageDeployedBy),
			quoteCell(d.LatestBuildTag),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", apps[i].Name, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func quoteCell(v string) string {
	if v == "" {
		return ""
	}
	return "'" + strings.ReplaceAll(v, "\n", "") + "'"
}
