// Package dedupe reduces repeated outcomes per product identifier to one
// authoritative record.
package dedupe

import (
	"github.com/shopsight/product-name-crawler/internal/pipeline"
)

// Merge keeps one outcome per product_id. Priority per identifier: a named
// record beats an unnamed one; among named records, success beats any other
// status; otherwise the first-seen record is kept. Records without a
// product_id are dropped.
func Merge(outcomes []pipeline.OutcomeRecord) []pipeline.OutcomeRecord {
	if len(outcomes) == 0 {
		return nil
	}
	kept := make(map[string]pipeline.OutcomeRecord, len(outcomes))
	order := make([]string, 0, len(outcomes))

	for _, out := range outcomes {
		if out.ProductID == "" {
			continue
		}
		existing, seen := kept[out.ProductID]
		if !seen {
			kept[out.ProductID] = out
			order = append(order, out.ProductID)
			continue
		}
		if beats(out, existing) {
			kept[out.ProductID] = out
		}
	}

	merged := make([]pipeline.OutcomeRecord, 0, len(order))
	for _, id := range order {
		merged = append(merged, kept[id])
	}
	return merged
}

// beats reports whether the challenger should replace the incumbent.
func beats(challenger, incumbent pipeline.OutcomeRecord) bool {
	if challenger.HasName() && !incumbent.HasName() {
		return true
	}
	if challenger.HasName() && incumbent.HasName() {
		return challenger.Status == pipeline.StatusSuccess && incumbent.Status != pipeline.StatusSuccess
	}
	return false
}
