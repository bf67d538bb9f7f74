package rollout

import (
	"hash/fnv"

	"github.com/hostbeacon/dnssync/pkg/metrics"
)

// Bucket maps a subject id to a stable bucket in [0,100). The hash is
// FNV-1a and percentage-independent, so raising the rollout percentage
// only ever adds subjects at the boundary and never flips an enabled
// subject back to disabled.
func Bucket(subjectID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subjectID))
	return int(h.Sum32() % 100)
}

// IsEnabled reports whether the subject falls inside the rollout
// percentage. The decision is deterministic: the same subject and
// percentage always produce the same answer, so operators can reproduce
// exactly which hosts are in the rollout.
func IsEnabled(subjectID string, percentage int) bool {
	enabled := evaluate(subjectID, percentage)
	if enabled {
		metrics.RolloutDecisionsTotal.WithLabelValues("true").Inc()
	} else {
		metrics.RolloutDecisionsTotal.WithLabelValues("false").Inc()
	}
	return enabled
}

func evaluate(subjectID string, percentage int) bool {
	if percentage <= 0 {
		return false
	}
	if percentage >= 100 {
		return true
	}
	return Bucket(subjectID) < percentage
}
