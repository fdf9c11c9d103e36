package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// RegistryMetrics tracks the story registry's operation volume and value flow.
type RegistryMetrics struct {
	operations  *prometheus.CounterVec
	lastTokenID prometheus.Gauge
	royaltyPaid prometheus.Counter
	tipsPaid    prometheus.Counter
}

var (
	registryOnce sync.Once
	registryReg  *RegistryMetrics
)

// Registry returns the lazily-initialised registry metrics collector.
func Registry() *RegistryMetrics {
	registryOnce.Do(func() {
		registryReg = &RegistryMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "registry_operations_total",
				Help: "Count of registry operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			lastTokenID: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "registry_last_token_id",
				Help: "Identifier of the most recently minted story token.",
			}),
			royaltyPaid: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "registry_royalty_paid_total",
				Help: "Cumulative royalty value paid to creators on transfers.",
			}),
			tipsPaid: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "registry_tips_paid_total",
				Help: "Cumulative tip value paid to creators.",
			}),
		}
		prometheus.MustRegister(
			registryReg.operations,
			registryReg.lastTokenID,
			registryReg.royaltyPaid,
			registryReg.tipsPaid,
		)
	})
	return registryReg
}

// ObserveOperation records the outcome of one registry operation.
func (m *RegistryMetrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// SetLastTokenID reflects the current counter value.
func (m *RegistryMetrics) SetLastTokenID(id uint64) {
	if m == nil {
		return
	}
	m.lastTokenID.Set(float64(id))
}

// AddRoyalty accumulates royalty volume.
func (m *RegistryMetrics) AddRoyalty(amount float64) {
	if m == nil {
		return
	}
	m.royaltyPaid.Add(amount)
}

// AddTip accumulates tip volume.
func (m *RegistryMetrics) AddTip(amount float64) {
	if m == nil {
		return
	}
	m.tipsPaid.Add(amount)
}
