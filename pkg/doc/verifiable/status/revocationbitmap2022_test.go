/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustframe/vc-go/pkg/doc/did"
	"github.com/trustframe/vc-go/pkg/doc/verifiable"
)

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := zlib.NewWriter(&buf)

	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func deflateCompress(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)

	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func bitmapIssuerDoc(endpoint string) *did.Doc {
	return &did.Doc{
		ID: "did:example:issuer",
		Service: []did.Service{
			{
				ID:              "did:example:issuer#revocation",
				Type:            RevocationBitmap2022Type,
				ServiceEndpoint: endpoint,
			},
		},
	}
}

func bitmapCredential(index interface{}) *verifiable.Credential {
	return &verifiable.Credential{
		Issuer: verifiable.Issuer{ID: "did:example:issuer"},
		Status: &verifiable.TypedID{
			ID:   "did:example:issuer#revocation",
			Type: RevocationBitmap2022Type,
			CustomFields: verifiable.CustomFields{
				RevocationBitmapIndex: index,
			},
		},
	}
}

func TestRevocationBitmap2022_BitAddressing(t *testing.T) {
	// 0b10000000: only the most significant bit of the first byte is set
	endpoint := base64.RawURLEncoding.EncodeToString(zlibCompress(t, []byte{0b10000000}))
	checker := NewChecker(WithIssuerDoc(bitmapIssuerDoc(endpoint)))

	t.Run("index 0 is revoked", func(t *testing.T) {
		err := checker.Check(bitmapCredential(0))
		require.ErrorIs(t, err, ErrRevoked)
	})

	t.Run("index 7 is not revoked", func(t *testing.T) {
		require.NoError(t, checker.Check(bitmapCredential(7)))
	})

	t.Run("index past the bitmap is an error, not a pass", func(t *testing.T) {
		err := checker.Check(bitmapCredential(8))
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrRevoked)
		require.Contains(t, err.Error(), "out of range")
	})
}

func TestRevocationBitmap2022_Boundary(t *testing.T) {
	// two-byte bitmap, bit 15 set
	endpoint := base64.RawURLEncoding.EncodeToString(zlibCompress(t, []byte{0x00, 0x01}))
	checker := NewChecker(WithIssuerDoc(bitmapIssuerDoc(endpoint)))

	err := checker.Check(bitmapCredential(15))
	require.ErrorIs(t, err, ErrRevoked)

	require.NoError(t, checker.Check(bitmapCredential(14)))

	err = checker.Check(bitmapCredential(16))
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of range")
}

func TestRevocationBitmap2022_Encodings(t *testing.T) {
	bitmap := []byte{0b01000000}

	t.Run("raw DEFLATE fallback", func(t *testing.T) {
		endpoint := base64.RawURLEncoding.EncodeToString(deflateCompress(t, bitmap))
		checker := NewChecker(WithIssuerDoc(bitmapIssuerDoc(endpoint)))

		err := checker.Check(bitmapCredential(1))
		require.ErrorIs(t, err, ErrRevoked)
	})

	t.Run("padded base64url", func(t *testing.T) {
		endpoint := base64.URLEncoding.EncodeToString(zlibCompress(t, bitmap))
		checker := NewChecker(WithIssuerDoc(bitmapIssuerDoc(endpoint)))

		err := checker.Check(bitmapCredential(1))
		require.ErrorIs(t, err, ErrRevoked)
	})

	t.Run("data URL", func(t *testing.T) {
		endpoint := "data:application/octet-stream;base64," +
			base64.RawURLEncoding.EncodeToString(zlibCompress(t, bitmap))
		checker := NewChecker(WithIssuerDoc(bitmapIssuerDoc(endpoint)))

		err := checker.Check(bitmapCredential(1))
		require.ErrorIs(t, err, ErrRevoked)
	})

	t.Run("malformed data URL", func(t *testing.T) {
		checker := NewChecker(WithIssuerDoc(bitmapIssuerDoc("data:application/octet-stream")))

		err := checker.Check(bitmapCredential(0))
		require.Error(t, err)
		require.Contains(t, err.Error(), "malformed data URL")
	})

	t.Run("not base64", func(t *testing.T) {
		checker := NewChecker(WithIssuerDoc(bitmapIssuerDoc("%%%")))

		err := checker.Check(bitmapCredential(0))
		require.Error(t, err)
		require.Contains(t, err.Error(), "decode base64url bitstring")
	})
}

func TestRevocationBitmap2022_ServiceLookup(t *testing.T) {
	endpoint := base64.RawURLEncoding.EncodeToString(zlibCompress(t, []byte{0x00}))

	t.Run("falls back to lookup by type", func(t *testing.T) {
		checker := NewChecker(WithIssuerDoc(bitmapIssuerDoc(endpoint)))

		vc := bitmapCredential(0)
		vc.Status.ID = ""

		require.NoError(t, checker.Check(vc))
	})

	t.Run("status id referencing a service of another type", func(t *testing.T) {
		doc := &did.Doc{
			ID: "did:example:issuer",
			Service: []did.Service{
				{
					ID:              "did:example:issuer#messaging",
					Type:            "DIDCommMessaging",
					ServiceEndpoint: "https://example.com",
				},
			},
		}

		vc := bitmapCredential(0)
		vc.Status.ID = "did:example:issuer#messaging"

		err := NewChecker(WithIssuerDoc(doc)).Check(vc)
		require.Error(t, err)
		require.Contains(t, err.Error(), "is not of type "+RevocationBitmap2022Type)
	})

	t.Run("no bitmap service", func(t *testing.T) {
		doc := &did.Doc{ID: "did:example:issuer"}

		err := NewChecker(WithIssuerDoc(doc)).Check(bitmapCredential(0))
		require.Error(t, err)
		require.Contains(t, err.Error(), "no "+RevocationBitmap2022Type+" service")
	})

	t.Run("issuer doc is required", func(t *testing.T) {
		err := NewChecker().Check(bitmapCredential(0))
		require.Error(t, err)
		require.Contains(t, err.Error(), "issuer DID document is not provided")
	})
}

func TestRevocationBitmap2022_EntryValidation(t *testing.T) {
	endpoint := base64.RawURLEncoding.EncodeToString(zlibCompress(t, []byte{0x00}))
	checker := NewChecker(WithIssuerDoc(bitmapIssuerDoc(endpoint)))

	t.Run("index field is required", func(t *testing.T) {
		vc := bitmapCredential(0)
		vc.Status.CustomFields = verifiable.CustomFields{}

		err := checker.Check(vc)
		require.Error(t, err)
		require.Contains(t, err.Error(), RevocationBitmapIndex+" field does not exist")
	})

	t.Run("negative index", func(t *testing.T) {
		err := checker.Check(bitmapCredential(-1))
		require.Error(t, err)
		require.Contains(t, err.Error(), "negative "+RevocationBitmapIndex)
	})

	t.Run("index as JSON number string", func(t *testing.T) {
		// weakly typed decoding accepts the string form used by some issuers
		require.NoError(t, checker.Check(bitmapCredential("0")))
	})
}
