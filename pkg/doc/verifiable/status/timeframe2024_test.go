/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustframe/vc-go/pkg/doc/verifiable"
)

func timeframeCredential(start, end string) *verifiable.Credential {
	return &verifiable.Credential{
		Issuer: verifiable.Issuer{ID: "did:example:issuer"},
		Status: &verifiable.TypedID{
			Type: Timeframe2024Type,
			CustomFields: verifiable.CustomFields{
				StartValidityTimeframe: start,
				EndValidityTimeframe:   end,
			},
		},
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTimeframe2024(t *testing.T) {
	start := "2024-01-01T00:00:00Z"
	end := "2024-02-01T00:00:00Z"

	t.Run("inside the window", func(t *testing.T) {
		checker := NewChecker(WithClock(fixedClock(
			time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))))

		require.NoError(t, checker.Check(timeframeCredential(start, end)))
	})

	t.Run("window boundaries are inclusive", func(t *testing.T) {
		for _, at := range []time.Time{
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		} {
			checker := NewChecker(WithClock(fixedClock(at)))
			require.NoError(t, checker.Check(timeframeCredential(start, end)))
		}
	})

	t.Run("before the window", func(t *testing.T) {
		checker := NewChecker(WithClock(fixedClock(
			time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC))))

		err := checker.Check(timeframeCredential(start, end))
		require.ErrorIs(t, err, ErrRevoked)
	})

	t.Run("after the window", func(t *testing.T) {
		checker := NewChecker(WithClock(fixedClock(
			time.Date(2024, 2, 1, 0, 0, 1, 0, time.UTC))))

		err := checker.Check(timeframeCredential(start, end))
		require.ErrorIs(t, err, ErrRevoked)
	})

	t.Run("window ends before it starts", func(t *testing.T) {
		checker := NewChecker(WithClock(fixedClock(
			time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))))

		err := checker.Check(timeframeCredential(end, start))
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrRevoked)
		require.Contains(t, err.Error(), "validity timeframe ends before it starts")
	})

	t.Run("invalid timestamps", func(t *testing.T) {
		checker := NewChecker()

		err := checker.Check(timeframeCredential("not a time", end))
		require.Error(t, err)
		require.Contains(t, err.Error(), "parse "+StartValidityTimeframe)

		err = checker.Check(timeframeCredential(start, "not a time"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "parse "+EndValidityTimeframe)
	})

	t.Run("missing fields", func(t *testing.T) {
		checker := NewChecker()

		for _, field := range []string{StartValidityTimeframe, EndValidityTimeframe} {
			vc := timeframeCredential(start, end)
			delete(vc.Status.CustomFields, field)

			err := checker.Check(vc)
			require.Error(t, err)
			require.Contains(t, err.Error(), field+" field does not exist")
		}
	})
}
