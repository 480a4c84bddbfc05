package metrics

import "time"

// Status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Deploy records a deployment attempt.
func Deploy(network, status string) {
	if !enabled {
		return
	}
	deployTotal.WithLabelValues(network, status).Inc()
}

// DeployDuration records how long confirmation took.
func DeployDuration(network string, d time.Duration) {
	if !enabled {
		return
	}
	deployDuration.WithLabelValues(network).Observe(d.Seconds())
}

// DeploymentRecord records a ledger write.
func DeploymentRecord(status string) {
	if !enabled {
		return
	}
	deploymentRecordTotal.WithLabelValues(status).Inc()
}

// Verify records a verification outcome.
func Verify(network, result string) {
	if !enabled {
		return
	}
	verifyTotal.WithLabelValues(network, result).Inc()
}
