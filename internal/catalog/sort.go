package catalog

import (
	"slices"
	"strings"
	"time"
)

// Direction is a sort direction as sent by the dashboard.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortByName orders apps by application name instead of a deployment field.
const SortByName = "name"

var fieldGetters = map[string]func(*DeployDetails) string{
	"tag":               func(d *DeployDetails) string { return d.Tag },
	"branch":            func(d *DeployDetails) string { return d.Branch },
	"status":            func(d *DeployDetails) string { return d.Status },
	"cluster":           func(d *DeployDetails) string { return d.Cluster },
	"commitby":          func(d *DeployDetails) string { return d.CommitBy },
	"commit_id":         func(d *DeployDetails) string { return d.CommitID },
	"namespace":         func(d *DeployDetails) string { return d.Namespace },
	"previous_tag":      func(d *DeployDetails) string { return d.PreviousTag },
	"commitmessage":     func(d *DeployDetails) string { return d.CommitMessage },
	"image_created_at":  func(d *DeployDetails) string { return d.ImageCreatedAt },
	"image_deployed_at": func(d *DeployDetails) string { return d.ImageDeployedAt },
	"image_deployed_by": func(d *DeployDetails) string { return d.ImageDeployedBy },
	"latest_build_tag":  func(d *DeployDetails) string { return d.LatestBuildTag },
}

var dateFields = map[string]bool{
	"image_created_at":  true,
	"image_deployed_at": true,
}

// ValidSortField reports whether SortApps understands field.
func ValidSortField(field string) bool {
	if field == SortByName {
		return true
	}
	_, ok := fieldGetters[field]
	return ok
}

// SortApps orders apps in place by field, reading deployment fields from env.
//
// Apps without a deployment in env sort after all others when ascending and
// before them when descending; empty timestamps follow the same rule. Equal
// keys keep their input order. An unknown field or direction is a no-op.
func SortApps(apps []App, field, env string, dir Direction) {
	var sign int
	switch dir {
	case Asc:
		sign = 1
	case Desc:
		sign = -1
	default:
		return
	}

	if field == SortByName {
		slices.SortStableFunc(apps, func(a, b App) int {
			return sign * strings.Compare(a.Name, b.Name)
		})
		return
	}

	get, ok := fieldGetters[field]
	if !ok {
		return
	}

	slices.SortStableFunc(apps, func(a, b App) int {
		da, db := a.Deployment(env), b.Deployment(env)
		switch {
		case da == nil && db == nil:
			return 0
		case da == nil:
			return sign
		case db == nil:
			return -sign
		}

		va, vb := get(da), get(db)
		if dateFields[field] {
			return compareDates(va, vb, sign)
		}
		return sign * strings.Compare(va, vb)
	})
}

func compareDates(a, b string, sign int) int {
	aEmpty, bEmpty := strings.TrimSpace(a) == "", strings.TrimSpace(b) == ""
	switch {
	case aEmpty && bEmpty:
		return 0
	case aEmpty:
		return sign
	case bEmpty:
		return -sign
	}

	ta, errA := ParseTimestamp(a)
	tb, errB := ParseTimestamp(b)
	if errA != nil || errB != nil {
		return sign * strings.Compare(a, b)
	}
	return sign * ta.Compare(tb)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp shapes found in deployment records:
// RFC 3339, Postgres text output, and plain dates.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range timestampLayouts {
		t, perr := time.Parse(layout, s)
		if perr == nil {
			return t, nil
		}
		err = perr
	}
	return time.Time{}, err
}
