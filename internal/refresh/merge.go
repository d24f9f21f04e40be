package refresh

import "github.com/sahajch/tillsync/internal/models"

// MergeLists folds a freshly fetched list into the list currently on screen
// without scrambling it: rows the user is already looking at keep their
// position (updated in place from the fresh data), genuinely new rows are
// prepended, and rows absent from the fresh data are dropped.
func MergeLists(current, incoming []models.CacheRecord) []models.CacheRecord {
	currentIDs := make(map[string]bool, len(current))
	for _, rec := range current {
		currentIDs[rec.ID] = true
	}
	fresh := make(map[string]models.CacheRecord, len(incoming))
	for _, rec := range incoming {
		fresh[rec.ID] = rec
	}

	merged := make([]models.CacheRecord, 0, len(incoming))
	for _, rec := range incoming {
		if !currentIDs[rec.ID] {
			merged = append(merged, rec)
		}
	}
	for _, rec := range current {
		if updated, ok := fresh[rec.ID]; ok {
			merged = append(merged, updated)
		}
	}
	return merged
}
