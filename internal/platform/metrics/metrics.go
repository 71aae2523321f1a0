package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger.
// Every method is safe to call on a nil *Metrics so services can run without
// instrumentation in tests.
type Metrics struct {
	VerifiersAdded        prometheus.Counter
	StudentsRegistered    prometheus.Counter
	StudentsVerified      prometheus.Counter
	DocumentsSubmitted    prometheus.Counter
	ScholarshipsCreated   prometheus.Counter
	ScholarshipsFilled    prometheus.Counter
	Applications          *prometheus.CounterVec
	DisbursedUnits        prometheus.Counter
	DepositedUnits        prometheus.Counter
	ApplyDuration         prometheus.Histogram
	CustodyCircuitOpen    prometheus.Gauge
	CustodyCircuitChanges *prometheus.CounterVec
}

// New creates and registers all ledger metrics with reg.
// Pass prometheus.DefaultRegisterer in the server and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VerifiersAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "edugrant_verifiers_added_total",
			Help: "Total number of verifiers granted the role",
		}),
		StudentsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "edugrant_students_registered_total",
			Help: "Total number of student registrations",
		}),
		StudentsVerified: factory.NewCounter(prometheus.CounterOpts{
			Name: "edugrant_students_verified_total",
			Help: "Total number of students transitioned to verified",
		}),
		DocumentsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "edugrant_documents_submitted_total",
			Help: "Total number of document reference submissions",
		}),
		ScholarshipsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "edugrant_scholarships_created_total",
			Help: "Total number of scholarships created",
		}),
		ScholarshipsFilled: factory.NewCounter(prometheus.CounterOpts{
			Name: "edugrant_scholarships_filled_total",
			Help: "Total number of scholarships that reached capacity",
		}),
		Applications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "edugrant_applications_total",
			Help: "Scholarship applications by result code",
		}, []string{"result"}),
		DisbursedUnits: factory.NewCounter(prometheus.CounterOpts{
			Name: "edugrant_disbursed_units_total",
			Help: "Cumulative asset units transferred to students",
		}),
		DepositedUnits: factory.NewCounter(prometheus.CounterOpts{
			Name: "edugrant_deposited_units_total",
			Help: "Cumulative asset units deposited into the fund pool",
		}),
		ApplyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "edugrant_apply_duration_seconds",
			Help:    "Duration of ApplyForScholarship including the custody transfer",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		CustodyCircuitOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "edugrant_custody_circuit_open",
			Help: "1 while the custody circuit breaker is open",
		}),
		CustodyCircuitChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "edugrant_custody_circuit_transitions_total",
			Help: "Custody circuit breaker transitions by target state",
		}, []string{"state"}),
	}
}

func (m *Metrics) IncrementVerifiersAdded() {
	if m != nil {
		m.VerifiersAdded.Inc()
	}
}

func (m *Metrics) IncrementStudentsRegistered() {
	if m != nil {
		m.StudentsRegistered.Inc()
	}
}

func (m *Metrics) IncrementStudentsVerified() {
	if m != nil {
		m.StudentsVerified.Inc()
	}
}

func (m *Metrics) IncrementDocumentsSubmitted() {
	if m != nil {
		m.DocumentsSubmitted.Inc()
	}
}

func (m *Metrics) IncrementScholarshipsCreated() {
	if m != nil {
		m.ScholarshipsCreated.Inc()
	}
}

func (m *Metrics) IncrementScholarshipsFilled() {
	if m != nil {
		m.ScholarshipsFilled.Inc()
	}
}

// RecordApplication counts an application outcome; result is "disbursed" or an error code.
func (m *Metrics) RecordApplication(result string) {
	if m != nil {
		m.Applications.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) AddDisbursed(units int64) {
	if m != nil {
		m.DisbursedUnits.Add(float64(units))
	}
}

func (m *Metrics) AddDeposited(units int64) {
	if m != nil {
		m.DepositedUnits.Add(float64(units))
	}
}

// ObserveApply records the duration of an ApplyForScholarship call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveApply(start time.Time) {
	if m != nil {
		m.ApplyDuration.Observe(time.Since(start).Seconds())
	}
}

// SetCustodyCircuit records a breaker transition.
func (m *Metrics) SetCustodyCircuit(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CustodyCircuitOpen.Set(1)
		m.CustodyCircuitChanges.WithLabelValues("open").Inc()
		return
	}
	m.CustodyCircuitOpen.Set(0)
	m.CustodyCircuitChanges.WithLabelValues("closed").Inc()
}
