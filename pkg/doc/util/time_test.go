/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package util

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeWrapper_LiteralPreservation(t *testing.T) {
	// the original literal survives a round trip, including trailing zero fractions
	for _, literal := range []string{
		"2023-01-25T12:30:19Z",
		"2023-01-25T12:30:19.0Z",
		"2023-01-25T12:30:19.000Z",
		"2023-01-25T12:30:19.123456789Z",
	} {
		var tw TimeWrapper

		require.NoError(t, json.Unmarshal([]byte(`"`+literal+`"`), &tw))

		marshalled, err := json.Marshal(tw)
		require.NoError(t, err)
		require.Equal(t, `"`+literal+`"`, string(marshalled))
	}
}

func TestTimeWrapper_NewTime(t *testing.T) {
	now := time.Date(2023, 1, 25, 12, 30, 19, 0, time.UTC)

	tw := NewTime(now)
	require.True(t, tw.Equal(now))

	marshalled, err := json.Marshal(tw)
	require.NoError(t, err)
	require.Equal(t, `"2023-01-25T12:30:19Z"`, string(marshalled))
}

func TestParseTimeWrapper(t *testing.T) {
	tw, err := ParseTimeWrapper("2023-01-25T12:30:19Z")
	require.NoError(t, err)
	require.Equal(t, "2023-01-25T12:30:19Z", tw.FormatToString())

	// a literal without a zone designator is tolerated
	tw, err = ParseTimeWrapper("2023-01-25T12:30:19")
	require.NoError(t, err)
	require.Equal(t, 2023, tw.Year())

	_, err = ParseTimeWrapper("not a time")
	require.Error(t, err)
}

func TestTimeWrapper_UnmarshalNull(t *testing.T) {
	var tw TimeWrapper

	require.NoError(t, json.Unmarshal([]byte("null"), &tw))
	require.True(t, tw.IsZero())
}
