package catalog

import "strings"

const notAvailable = "N/A"

// Candidate is one app that can be promoted from one environment to another.
type Candidate struct {
	AppName        string `json:"appName"`
	CurrentVersion string `json:"currentVersion"`
	CurrentBranch  string `json:"currentBranch"`
	ToEnvVersion   string `json:"toEnvVersion"`
	ToEnvBranch    string `json:"toEnvBranch"`
}

// BulkDeployCandidates lists every app with a tagged deployment in from,
// alongside what currently runs in to. Missing values read "N/A". A non-empty
// filter keeps only apps whose name contains it, case-insensitively.
func BulkDeployCandidates(apps []App, from, to, filter string) []Candidate {
	filter = strings.ToLower(filter)

	out := make([]Candidate, 0, len(apps))
	for i := range apps {
		src := apps[i].Deployment(from)
		if src == nil || src.Tag == "" {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(apps[i].Name), filter) {
			continue
		}

		c := Candidate{
			AppName:        apps[i].Name,
			CurrentVersion: src.Tag,
			CurrentBranch:  orNA(src.Branch),
			ToEnvVersion:   notAvailable,
			ToEnvBranch:    notAvailable,
		}
		if to != "" {
			if dst := apps[i].Deployment(to); dst != nil {
				c.ToEnvVersion = orNA(dst.Tag)
				c.ToEnvBranch = orNA(dst.Branch)
			}
		}
		out = append(out, c)
	}
	return out
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
