package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobHistory_KeepsLatest(t *testing.T) {
	h := &JobHistory{}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < maxHistory+20; i++ {
		h.AddResult(JobResult{
			JobName:   "cache_sweep",
			StartTime: base.Add(time.Duration(i) * time.Minute),
			Success:   i%2 == 0,
		})
	}

	assert.Equal(t, maxHistory, h.Len())

	latest := h.GetLatestResults(3)
	assert.Len(t, latest, 3)
	assert.Equal(t, base.Add(119*time.Minute), latest[2].StartTime)

	assert.Len(t, h.GetLatestResults(1000), maxHistory)
	assert.Empty(t, h.GetLatestResults(0))
}

func TestJobHistory_SuccessRate(t *testing.T) {
	tests := []struct {
		name    string
		results []bool
		want    float64
		failed  int
	}{
		{"empty", nil, 0, 0},
		{"all success", []bool{true, true}, 1, 0},
		{"mixed", []bool{true, false, true, false}, 0.5, 2},
		{"all failed", []bool{false}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &JobHistory{}
			for _, ok := range tt.results {
				h.AddResult(JobResult{Success: ok})
			}

			assert.InDelta(t, tt.want, h.GetSuccessRate(), 1e-9)
			assert.Len(t, h.GetFailedResults(), tt.failed)
		})
	}
}

func TestJobHistory_ResultsAreCopies(t *testing.T) {
	h := &JobHistory{}
	h.AddResult(JobResult{JobName: "cache_sweep"})

	got := h.GetLatestResults(1)
	got[0].JobName = "mutated"

	assert.Equal(t, "cache_sweep", h.GetLatestResults(1)[0].JobName)
}
