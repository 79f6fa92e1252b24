package domain

// Outcome is the result of checking a code. The zero value is
// OutcomeRejected.
type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeAccepted
	OutcomeEnrolled
	OutcomeMalformed
	OutcomeNotProvisioned
	OutcomePendingEnrollment
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeEnrolled:
		return "enrolled"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeNotProvisioned:
		return "not_provisioned"
	case OutcomePendingEnrollment:
		return "pending_enrollment"
	default:
		return "rejected"
	}
}

// OK reports whether the code was accepted.
func (o Outcome) OK() bool {
	return o == OutcomeAccepted || o == OutcomeEnrolled
}

// Err maps a failed outcome to its sentinel error, nil when OK.
func (o Outcome) Err() error {
	switch o {
	case OutcomeAccepted, OutcomeEnrolled:
		return nil
	case OutcomeMalformed:
		return ErrMalformedInput
	case OutcomeNotProvisioned:
		return ErrNotProvisioned
	case OutcomePendingEnrollment:
		return ErrPendingEnrollment
	default:
		return ErrRejected
	}
}
