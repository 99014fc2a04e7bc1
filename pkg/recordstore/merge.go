package recordstore

import (
	"github.com/gowso/bizsites/pkg/model"
	"github.com/gowso/bizsites/pkg/subdomain"
)

type MergeStats struct {
	Read       int `json:"read"`
	Unnamed    int `json:"unnamed"`
	Inactive   int `json:"inactive"`
	Duplicates int `json:"duplicates"`
	Added      int `json:"added"`
}

// MergeExports returns the source rows that should be appended to master.
// Rows are keyed by the first label of their subdomain, case-insensitively; a missing subdomain is derived
// from the business name. Rows listed in inactive are dropped, and the first occurrence of a key wins with
// master rows taking precedence over every source.
func MergeExports(master, inactive []model.BusinessRecord, sources ...[]model.BusinessRecord) ([]model.BusinessRecord, MergeStats) {
	var stats MergeStats

	skip := map[string]bool{}
	for _, rec := range inactive {
		if key := mergeKey(rec); key != "" {
			skip[key] = true
		}
	}

	seen := map[string]bool{}
	for _, rec := range master {
		if key := mergeKey(rec); key != "" {
			seen[key] = true
		}
	}

	var added []model.BusinessRecord
	for _, source := range sources {
		for _, rec := range source {
			stats.Read++

			if rec.Subdomain == "" {
				rec.Subdomain = subdomain.Normalize(rec.Name)
			}
			key := mergeKey(rec)
			switch {
			case key == "":
				stats.Unnamed++
			case skip[key]:
				stats.Inactive++
			case seen[key]:
				stats.Duplicates++
			default:
				seen[key] = true
				added = append(added, rec)
			}
		}
	}

	stats.Added = len(added)
	return added, stats
}

func mergeKey(rec model.BusinessRecord) string {
	if rec.Subdomain != "" {
		return subdomain.LabelOf(rec.Subdomain)
	}
	return subdomain.Normalize(rec.Name)
}
