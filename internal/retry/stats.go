package retry

import "github.com/fntelecomllc/kbagent/internal/models"

// Stats summarizes the current retry landscape across a set of records,
// per §4.5's "counts of failure types, active breakers, average retries,
// retry-count histogram".
type Stats struct {
	FailureTypeCounts map[models.FailureTypeEnum]int
	ActiveBreakers    int
	AverageRetries    float64
	RetryCountHistogram map[int]int
}

// ComputeStats derives Stats from records; ActiveBreakers comes from
// Manager's own breaker cache since that state isn't carried on
// ItemRecord.
func (m *Manager) ComputeStats(records map[string]models.ItemRecord) Stats {
	s := Stats{
		FailureTypeCounts:   make(map[models.FailureTypeEnum]int),
		RetryCountHistogram: make(map[int]int),
	}

	var totalRetries int
	var consideredItems int
	for id, rec := range records {
		if rec.FailureType.Valid {
			s.FailureTypeCounts[models.FailureTypeEnum(rec.FailureType.String)]++
		}
		if rec.RetryCount > 0 {
			totalRetries += rec.RetryCount
			consideredItems++
		}
		s.RetryCountHistogram[rec.RetryCount]++
		if m.breakerOpen(id) {
			s.ActiveBreakers++
		}
	}
	if consideredItems > 0 {
		s.AverageRetries = float64(totalRetries) / float64(consideredItems)
	}
	return s
}
