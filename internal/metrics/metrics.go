// Package metrics exposes the small set of Prometheus counters and
// gauges the daemons increment as they move slots, jobs, and child
// processes through their lifecycles. Every metric is registered on
// the default registry via promauto so callers never deal with
// registration errors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	slotAcquireTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipkeeper_slot_acquire_total",
		Help: "Slot registry acquire attempts by outcome.",
	}, []string{"outcome"})

	slotReleaseTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipkeeper_slot_release_total",
		Help: "Slot registry releases.",
	})

	slotsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clipkeeper_slots_active",
		Help: "Number of currently held recording slots, as last observed.",
	})

	jobsEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipkeeper_jobs_enqueued_total",
		Help: "Encode jobs written to the queue directory.",
	})

	jobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipkeeper_jobs_processed_total",
		Help: "Encode jobs picked up by the encode daemon, by outcome.",
	}, []string{"outcome"})

	pauseTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipkeeper_transcode_pause_total",
		Help: "Times the active transcode child was paused (SIGSTOP) for a live capture.",
	})

	resumeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clipkeeper_transcode_resume_total",
		Help: "Times the active transcode child was resumed (SIGCONT).",
	})

	probeResultTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipkeeper_poller_probe_total",
		Help: "Poller liveness probes, by result.",
	}, []string{"result"})

	procTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipkeeper_proc_terminate_total",
		Help: "Signals sent during graceful process-group termination, by signal and outcome.",
	}, []string{"signal", "outcome"})

	procWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipkeeper_proc_wait_total",
		Help: "Outcomes observed while waiting on a terminated process group.",
	}, []string{"outcome"})
)

// IncSlotAcquire records a slot acquisition attempt outcome: "acquired",
// "busy", or "error".
func IncSlotAcquire(outcome string) {
	slotAcquireTotal.WithLabelValues(outcome).Inc()
}

// IncSlotRelease records a slot release.
func IncSlotRelease() {
	slotReleaseTotal.Inc()
}

// SetSlotsActive reports the current number of held slots.
func SetSlotsActive(n int) {
	slotsActive.Set(float64(n))
}

// IncJobEnqueued records a job written to the encode queue.
func IncJobEnqueued() {
	jobsEnqueuedTotal.Inc()
}

// IncJobProcessed records a dequeued job outcome: "success" or "failed".
func IncJobProcessed(outcome string) {
	jobsProcessedTotal.WithLabelValues(outcome).Inc()
}

// IncPause records a transcode pause transition.
func IncPause() {
	pauseTotal.Inc()
}

// IncResume records a transcode resume transition.
func IncResume() {
	resumeTotal.Inc()
}

// IncProbeResult records a poller probe outcome: "live", "offline", or
// "error".
func IncProbeResult(result string) {
	probeResultTotal.WithLabelValues(result).Inc()
}

// IncProcTerminate records a signal sent during graceful termination.
func IncProcTerminate(signal, outcome string) {
	procTerminateTotal.WithLabelValues(signal, outcome).Inc()
}

// IncProcWait records the outcome of waiting on a signalled process group.
func IncProcWait(outcome string) {
	procWaitTotal.WithLabelValues(outcome).Inc()
}
