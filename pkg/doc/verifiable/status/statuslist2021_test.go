/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustframe/vc-go/pkg/doc/verifiable"
)

const statusListVCID = "https://example.com/credentials/status/3"

func gzipCompress(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)

	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func statusListCredential(encodedList string) *verifiable.Credential {
	return &verifiable.Credential{
		ID:     statusListVCID,
		Types:  []string{"VerifiableCredential", "StatusList2021Credential"},
		Issuer: verifiable.Issuer{ID: "did:example:issuer"},
		Subject: []verifiable.Subject{
			{
				ID: statusListVCID + "#list",
				CustomFields: verifiable.CustomFields{
					"type":        "StatusList2021",
					"encodedList": encodedList,
				},
			},
		},
	}
}

func statusListEntryCredential(index string) *verifiable.Credential {
	return &verifiable.Credential{
		Issuer: verifiable.Issuer{ID: "did:example:issuer"},
		Status: &verifiable.TypedID{
			ID:   statusListVCID + "#94567",
			Type: StatusList2021Type,
			CustomFields: verifiable.CustomFields{
				StatusPurpose:        "revocation",
				StatusListIndex:      index,
				StatusListCredential: statusListVCID,
			},
		},
	}
}

func TestStatusList2021_BitAddressing(t *testing.T) {
	// 0b10000000: only the most significant bit of the first byte is set
	encodedList := base64.RawURLEncoding.EncodeToString(gzipCompress(t, []byte{0b10000000}))
	checker := NewChecker(WithStatusListCredential(statusListCredential(encodedList)))

	t.Run("index 0 is revoked", func(t *testing.T) {
		err := checker.Check(statusListEntryCredential("0"))
		require.ErrorIs(t, err, ErrRevoked)
	})

	t.Run("index 7 is not revoked", func(t *testing.T) {
		require.NoError(t, checker.Check(statusListEntryCredential("7")))
	})

	t.Run("index past the list is an error, not a pass", func(t *testing.T) {
		err := checker.Check(statusListEntryCredential("8"))
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrRevoked)
		require.Contains(t, err.Error(), "out of range")
	})
}

func TestStatusList2021_Encodings(t *testing.T) {
	bitString := []byte{0b00100000}

	t.Run("zlib fallback", func(t *testing.T) {
		encodedList := base64.RawURLEncoding.EncodeToString(zlibCompress(t, bitString))
		checker := NewChecker(WithStatusListCredential(statusListCredential(encodedList)))

		err := checker.Check(statusListEntryCredential("2"))
		require.ErrorIs(t, err, ErrRevoked)
	})

	t.Run("padded base64url", func(t *testing.T) {
		encodedList := base64.URLEncoding.EncodeToString(gzipCompress(t, bitString))
		checker := NewChecker(WithStatusListCredential(statusListCredential(encodedList)))

		err := checker.Check(statusListEntryCredential("2"))
		require.ErrorIs(t, err, ErrRevoked)
	})

	t.Run("neither gzip nor zlib", func(t *testing.T) {
		encodedList := base64.RawURLEncoding.EncodeToString([]byte("plain"))
		checker := NewChecker(WithStatusListCredential(statusListCredential(encodedList)))

		err := checker.Check(statusListEntryCredential("0"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "neither gzip nor zlib")
	})

	t.Run("not base64", func(t *testing.T) {
		checker := NewChecker(WithStatusListCredential(statusListCredential("%%%")))

		err := checker.Check(statusListEntryCredential("0"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "decode base64url encodedList")
	})
}

func TestStatusList2021_ReferenceChecks(t *testing.T) {
	encodedList := base64.RawURLEncoding.EncodeToString(gzipCompress(t, []byte{0x00}))

	t.Run("status list credential is required", func(t *testing.T) {
		err := NewChecker().Check(statusListEntryCredential("0"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "status list credential is not provided")
	})

	t.Run("status list credential id mismatch", func(t *testing.T) {
		listVC := statusListCredential(encodedList)
		listVC.ID = "https://example.com/credentials/status/4"

		err := NewChecker(WithStatusListCredential(listVC)).Check(statusListEntryCredential("0"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "does not match "+StatusListCredential)
	})

	t.Run("status list credential without id matches any reference", func(t *testing.T) {
		listVC := statusListCredential(encodedList)
		listVC.ID = ""

		require.NoError(t, NewChecker(WithStatusListCredential(listVC)).Check(statusListEntryCredential("0")))
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		listVC := statusListCredential(encodedList)
		listVC.Issuer.ID = "did:example:another-issuer"

		err := NewChecker(WithStatusListCredential(listVC)).Check(statusListEntryCredential("0"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "issuer of the credential does not match status list vc issuer")
	})

	t.Run("no subject in status list credential", func(t *testing.T) {
		listVC := statusListCredential(encodedList)
		listVC.Subject = nil

		err := NewChecker(WithStatusListCredential(listVC)).Check(statusListEntryCredential("0"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "no subject in status list credential")
	})

	t.Run("no encodedList in subject", func(t *testing.T) {
		listVC := statusListCredential(encodedList)
		listVC.Subject[0].CustomFields = verifiable.CustomFields{}

		err := NewChecker(WithStatusListCredential(listVC)).Check(statusListEntryCredential("0"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "no encodedList in status list credential subject")
	})
}

func TestStatusList2021_EntryValidation(t *testing.T) {
	encodedList := base64.RawURLEncoding.EncodeToString(gzipCompress(t, []byte{0x00}))
	checker := NewChecker(WithStatusListCredential(statusListCredential(encodedList)))

	t.Run("missing fields", func(t *testing.T) {
		for _, field := range []string{StatusListCredential, StatusListIndex, StatusPurpose} {
			vc := statusListEntryCredential("0")
			delete(vc.Status.CustomFields, field)

			err := checker.Check(vc)
			require.Error(t, err)
			require.Contains(t, err.Error(), field+" field does not exist")
		}
	})

	t.Run("unsupported purpose", func(t *testing.T) {
		vc := statusListEntryCredential("0")
		vc.Status.CustomFields[StatusPurpose] = "suspension"

		err := checker.Check(vc)
		require.Error(t, err)
		require.Contains(t, err.Error(), "unsupported statusPurpose: suspension")
	})

	t.Run("non-numeric index", func(t *testing.T) {
		err := checker.Check(statusListEntryCredential("abc"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "unable to get statusListIndex")
	})

	t.Run("negative index", func(t *testing.T) {
		err := checker.Check(statusListEntryCredential("-1"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "negative "+StatusListIndex)
	})
}
