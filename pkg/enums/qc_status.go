package enums

import "fmt"

// QCStatus gates whether a lot's stock may be reserved or issued.
type QCStatus string

const (
	QCStatusQuarantine QCStatus = "QUARANTINE"
	QCStatusApproved   QCStatus = "APPROVED"
	QCStatusRejected   QCStatus = "REJECTED"
)

var validQCStatuses = []QCStatus{
	QCStatusQuarantine,
	QCStatusApproved,
	QCStatusRejected,
}

// IsValid reports whether the value matches a canonical QC status.
func (s QCStatus) IsValid() bool {
	for _, candidate := range validQCStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status accepts no further transitions.
// APPROVED and REJECTED are terminal; only quarantined lots may move.
func (s QCStatus) IsTerminal() bool {
	return s == QCStatusApproved || s == QCStatusRejected
}

// CanTransitionTo reports whether the transition s -> target is allowed.
// Re-applying the current status is treated as a no-op by callers, not a
// transition, so it is not modeled here.
func (s QCStatus) CanTransitionTo(target QCStatus) bool {
	if s != QCStatusQuarantine {
		return false
	}
	return target == QCStatusApproved || target == QCStatusRejected
}

// ParseQCStatus converts raw input into QCStatus.
func ParseQCStatus(value string) (QCStatus, error) {
	for _, candidate := range validQCStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid qc status %q", value)
}
