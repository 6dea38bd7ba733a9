package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	TurnsTotal             metric.Int64Counter
	StageDurationSeconds   metric.Float64Histogram
	RetrievalCandidates    metric.Int64Histogram
	RetrievalErrorsTotal   metric.Int64Counter
	PlanConfirmationsTotal metric.Int64Counter
	SessionsSweptTotal     metric.Int64Counter
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("daytour")
		var err error
		m := &AppMetrics{}

		m.TurnsTotal, err = meter.Int64Counter(
			"chat_turns_total",
			metric.WithDescription("Total number of conversational turns processed, by stage"),
			metric.WithUnit("{turn}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create chat_turns_total: %v", err)
		}

		m.StageDurationSeconds, err = meter.Float64Histogram(
			"chat_stage_duration_seconds",
			metric.WithDescription("Duration of one processing stage in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create chat_stage_duration_seconds: %v", err)
		}

		m.RetrievalCandidates, err = meter.Int64Histogram(
			"retrieval_candidates",
			metric.WithDescription("Structured candidate set size per hybrid search"),
			metric.WithUnit("{place}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create retrieval_candidates: %v", err)
		}

		m.RetrievalErrorsTotal, err = meter.Int64Counter(
			"retrieval_errors_total",
			metric.WithDescription("Total number of failed retrieval calls"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create retrieval_errors_total: %v", err)
		}

		m.PlanConfirmationsTotal, err = meter.Int64Counter(
			"plan_confirmations_total",
			metric.WithDescription("Total number of confirmed travel plans"),
			metric.WithUnit("{plan}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plan_confirmations_total: %v", err)
		}

		m.SessionsSweptTotal, err = meter.Int64Counter(
			"sessions_swept_total",
			metric.WithDescription("Total number of sessions removed by TTL sweep"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create sessions_swept_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m // Assign to global variable
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		// This indicates a programming error - InitAppMetrics must be called at startup.
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
