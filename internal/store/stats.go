package store

import (
	"math"

	"civicconnect/internal/models"
)

// statsAccumulator folds status, confidence and category counts into AuthorityStats.
// Both backends feed it so the arithmetic lives in one place.
type statsAccumulator struct {
	stats    models.AuthorityStats
	scoreSum float64
	scored   int64
}

func newStatsAccumulator() *statsAccumulator {
	acc := &statsAccumulator{
		stats: models.AuthorityStats{
			ConfidenceDistribution: make(map[string]int64, len(models.ConfidenceBuckets)),
			CategoryStats:          make(map[string]int64),
		},
	}
	for _, b := range models.ConfidenceBuckets {
		acc.stats.ConfidenceDistribution[b] = 0
	}
	return acc
}

func (a *statsAccumulator) addStatus(status string, n int64) {
	a.stats.Total += n
	switch status {
	case models.StatusResolved:
		a.stats.Resolved += n
	case models.StatusPending:
		a.stats.Pending += n
	case models.StatusInProgress:
		a.stats.InProgress += n
	case models.StatusRejected:
		a.stats.Rejected += n
	default:
		a.stats.Other += n
	}
}

// addScores records n complaints with positive aiScore summing to sum.
func (a *statsAccumulator) addScores(bucket string, n int64, sum float64) {
	a.stats.ConfidenceDistribution[bucket] += n
	a.scored += n
	a.scoreSum += sum
}

func (a *statsAccumulator) addCategory(category string, n int64) {
	if category == "" {
		category = models.CategoryOthers
	}
	a.stats.CategoryStats[category] += n
}

func (a *statsAccumulator) result() *models.AuthorityStats {
	if a.scored > 0 {
		a.stats.AvgConfidence = math.Round(a.scoreSum/float64(a.scored)*10) / 10
	}
	out := a.stats
	return &out
}
