package harvest

// StagnationDetector decides when the catalog is exhausted rather than
// merely slow: a sustained run of rounds persisting zero net-new records.
// Rounds full of re-seen duplicates still count as stagnant; only a round
// with Added > 0 resets the streak.
type StagnationDetector struct {
	threshold   int
	consecutive int
}

// NewStagnationDetector stops the crawl after threshold consecutive
// zero-added rounds.
func NewStagnationDetector(threshold int) *StagnationDetector {
	if threshold <= 0 {
		threshold = 10
	}
	return &StagnationDetector{threshold: threshold}
}

// RecordRound folds one round's outcome into the streak and reports whether
// the crawl should stop.
func (d *StagnationDetector) RecordRound(outcome RoundOutcome) bool {
	if outcome.Added > 0 {
		d.consecutive = 0
		return false
	}
	d.consecutive++
	stagnantRounds.Inc()
	return d.consecutive >= d.threshold
}

// Streak exposes the current consecutive zero-added round count.
func (d *StagnationDetector) Streak() int {
	return d.consecutive
}
