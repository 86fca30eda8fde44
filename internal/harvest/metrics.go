package harvest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// recordsSaved tracks records appended to the result journal.
	recordsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_records_saved_total",
		Help: "The total number of records appended to the result journal.",
	})
	// fetchFailures tracks candidates that never produced a valid record.
	fetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_fetch_failures_total",
		Help: "The total number of candidates written to the failure journal.",
	})
	// fetchRetries tracks individual retried navigation attempts.
	fetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_fetch_retries_total",
		Help: "The total number of retried detail navigation attempts.",
	})
	// stagnantRounds tracks rounds that added no new records.
	stagnantRounds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_stagnant_rounds_total",
		Help: "The total number of rounds that persisted zero new records.",
	})
	// roundsTotal tracks all orchestration rounds.
	roundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_rounds_total",
		Help: "The total number of orchestration rounds executed.",
	})
)
