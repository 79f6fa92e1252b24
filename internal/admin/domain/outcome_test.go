package domain_test

import (
	"testing"

	"github.com/aussiebroadwan/backoffice/internal/admin/domain"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	var zero domain.Outcome
	require.Equal(t, domain.OutcomeRejected, zero)

	tests := []struct {
		outcome domain.Outcome
		name    string
		ok      bool
		err     error
	}{
		{domain.OutcomeAccepted, "accepted", true, nil},
		{domain.OutcomeEnrolled, "enrolled", true, nil},
		{domain.OutcomeRejected, "rejected", false, domain.ErrRejected},
		{domain.OutcomeMalformed, "malformed", false, domain.ErrMalformedInput},
		{domain.OutcomeNotProvisioned, "not_provisioned", false, domain.ErrNotProvisioned},
		{domain.OutcomePendingEnrollment, "pending_enrollment", false, domain.ErrPendingEnrollment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.name, tt.outcome.String())
			require.Equal(t, tt.ok, tt.outcome.OK())
			if tt.err == nil {
				require.NoError(t, tt.outcome.Err())
			} else {
				require.ErrorIs(t, tt.outcome.Err(), tt.err)
			}
		})
	}
}
