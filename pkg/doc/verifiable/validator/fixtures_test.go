/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"bytes"
	"compress/zlib"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/require"

	"github.com/trustframe/vc-go/pkg/doc/did"
	"github.com/trustframe/vc-go/pkg/doc/util"
	"github.com/trustframe/vc-go/pkg/doc/verifiable"
)

const (
	issuerDID  = "did:example:issuer"
	holderDID  = "did:example:holder"
	issuerKID  = issuerDID + "#key-1"
	holderKID  = holderDID + "#key-1"
	credentialID = "http://example.edu/credentials/58473"
)

// validAt is a moment at which the test credentials are within their validity period.
var validAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type testKeys struct {
	pubKey  ed25519.PublicKey
	privKey ed25519.PrivateKey
	doc     *did.Doc
}

func newTestKeys(t *testing.T, docID, kid string) *testKeys {
	t.Helper()

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	return &testKeys{
		pubKey:  pubKey,
		privKey: privKey,
		doc: &did.Doc{
			ID: docID,
			VerificationMethod: []did.VerificationMethod{
				{
					ID:              kid,
					Type:            "Ed25519VerificationKey2018",
					Controller:      docID,
					PublicKeyBase58: base58.Encode(pubKey),
				},
			},
		},
	}
}

type ed25519TestSigner struct {
	privKey ed25519.PrivateKey
}

func (s *ed25519TestSigner) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(s.privKey, data), nil
}

func (s *ed25519TestSigner) Alg() string {
	return "EdDSA"
}

type rs256TestSigner struct {
	privKey *rsa.PrivateKey
}

func (s *rs256TestSigner) Sign(data []byte) ([]byte, error) {
	hash := crypto.SHA256.New()

	if _, err := hash.Write(data); err != nil {
		return nil, err
	}

	return rsa.SignPKCS1v15(rand.Reader, s.privKey, crypto.SHA256, hash.Sum(nil))
}

func (s *rs256TestSigner) Alg() string {
	return "RS256"
}

func testCredential() *verifiable.Credential {
	return &verifiable.Credential{
		Context: []string{"https://www.w3.org/2018/credentials/v1"},
		ID:      credentialID,
		Types:   []string{"VerifiableCredential"},
		Subject: []verifiable.Subject{{ID: holderDID}},
		Issuer:  verifiable.Issuer{ID: issuerDID},
		Issued:  util.NewTime(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)),
		Expired: util.NewTime(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
}

func signCredential(t *testing.T, vc *verifiable.Credential, keys *testKeys) string {
	t.Helper()

	claims, err := vc.JWTClaims(false)
	require.NoError(t, err)

	jws, err := claims.MarshalJWS(verifiable.EdDSA, &ed25519TestSigner{privKey: keys.privKey}, issuerKID)
	require.NoError(t, err)

	return jws
}

// corruptSignature flips one bit of the decoded signature segment so the token stays
// structurally well formed.
func corruptSignature(t *testing.T, token string) string {
	t.Helper()

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	require.NoError(t, err)

	sig[0] ^= 0x01

	return parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func zlibBitmapEndpoint(t *testing.T, bitmap []byte) string {
	t.Helper()

	var buf bytes.Buffer

	w := zlib.NewWriter(&buf)

	_, err := w.Write(bitmap)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return base64.RawURLEncoding.EncodeToString(buf.Bytes())
}

func withBitmapService(doc *did.Doc, bitmapEndpoint string) *did.Doc {
	doc.Service = append(doc.Service, did.Service{
		ID:              doc.ID + "#revocation",
		Type:            "RevocationBitmap2022",
		ServiceEndpoint: bitmapEndpoint,
	})

	return doc
}

func bitmapStatus(doc *did.Doc, index int) *verifiable.TypedID {
	return &verifiable.TypedID{
		ID:   doc.ID + "#revocation",
		Type: "RevocationBitmap2022",
		CustomFields: verifiable.CustomFields{
			"revocationBitmapIndex": index,
		},
	}
}

func requireSingleError(t *testing.T, r *Result, kind ErrorKind) {
	t.Helper()

	require.False(t, r.Valid())
	require.Len(t, r.Errors, 1)
	require.Equal(t, kind, r.Errors[0].Kind)
	require.Error(t, r.Err())
}
