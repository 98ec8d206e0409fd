package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_operations_total",
			Help: "Total payment ledger operations",
		},
		[]string{"operation", "outcome"},
	)

	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Total ticket issuance attempts",
		},
		[]string{"outcome"},
	)

	ticketValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_validations_total",
			Help: "Total redemption validations",
		},
		[]string{"result"},
	)

	codeClaimAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "verification_code_claim_attempts",
			Help:    "Attempts needed to claim a unique verification code",
			Buckets: prometheus.LinearBuckets(1, 1, 5),
		},
	)

	liveTickets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_tickets_total",
			Help: "Confirmed, unexpired tickets currently tracked",
		},
	)

	expiredSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expired_tickets_swept_total",
			Help: "Tickets retired by the expiry cleanup loop",
		},
	)
)

// LiveTicketCounter is the slice of the ticket store the monitor polls.
type LiveTicketCounter interface {
	CountLive(ctx context.Context) (int64, error)
}

type Monitor struct {
	tickets LiveTicketCounter
}

func NewMonitor(tickets LiveTicketCounter) *Monitor {
	monitor := &Monitor{tickets: tickets}

	// Start metrics collection
	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if count, err := m.tickets.CountLive(ctx); err == nil {
			liveTickets.Set(float64(count))
		}
		cancel()
	}
}

// TrackPaymentOperation records a ledger operation and its outcome.
func TrackPaymentOperation(operation, outcome string) {
	paymentOperations.WithLabelValues(operation, outcome).Inc()
}

// TrackIssuance records a ticket issuance attempt.
func TrackIssuance(outcome string) {
	ticketsIssued.WithLabelValues(outcome).Inc()
}

// TrackValidation records a redemption validation result.
func TrackValidation(result string) {
	ticketValidations.WithLabelValues(result).Inc()
}

// ObserveCodeClaim records how many draws a unique code took.
func ObserveCodeClaim(attempts int) {
	codeClaimAttempts.Observe(float64(attempts))
}

// TrackExpiredSweep records tickets retired by a cleanup pass.
func TrackExpiredSweep(count int) {
	expiredSwept.Add(float64(count))
}
