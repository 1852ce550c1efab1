package enums

import "fmt"

// ReservationStatus tracks the reservation lifecycle.
type ReservationStatus string

const (
	ReservationStatusOpen      ReservationStatus = "OPEN"
	ReservationStatusIssued    ReservationStatus = "ISSUED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusOpen,
	ReservationStatusIssued,
	ReservationStatusCancelled,
}

// IsValid reports whether the value matches a canonical reservation status.
func (s ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status accepts no further transitions.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusIssued || s == ReservationStatusCancelled
}

// CanTransitionTo reports whether the transition s -> target is allowed.
// OPEN may become ISSUED or CANCELLED; both of those are terminal.
func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	if s != ReservationStatusOpen {
		return false
	}
	return target == ReservationStatusIssued || target == ReservationStatusCancelled
}

// ParseReservationStatus converts raw input into ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
