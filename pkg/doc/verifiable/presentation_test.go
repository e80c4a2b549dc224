/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustframe/vc-go/pkg/doc/sigverifier"
)

const validPresentation = `{
  "@context": ["https://www.w3.org/2018/credentials/v1"],
  "id": "urn:uuid:3978344f-8596-4c3a-a978-8fcaba3903c5",
  "type": ["VerifiablePresentation"],
  "holder": "did:example:ebfeb1f712ebc6f1c276e12ec21",
  "verifiableCredential": [` + validCredential + `]
}`

func TestNewPresentation(t *testing.T) {
	vc, err := ParseCredential([]byte(validCredential))
	require.NoError(t, err)

	t.Run("with credentials", func(t *testing.T) {
		vp, err := NewPresentation(WithCredentials(vc))
		require.NoError(t, err)
		require.Equal(t, []string{"https://www.w3.org/2018/credentials/v1"}, vp.Context)
		require.Equal(t, []string{"VerifiablePresentation"}, vp.Type)
		require.Len(t, vp.Credentials(), 1)
		require.Equal(t, vc, vp.Credentials()[0])
	})

	t.Run("with JWT credentials", func(t *testing.T) {
		_, privKey, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		claims, err := vc.JWTClaims(false)
		require.NoError(t, err)

		jws, err := claims.MarshalJWS(EdDSA, &ed25519TestSigner{privKey: privKey}, "#key-1")
		require.NoError(t, err)

		vp, err := NewPresentation(WithJWTCredentials(jws))
		require.NoError(t, err)
		require.Len(t, vp.Credentials(), 1)
	})

	t.Run("JWT credential must be compact form", func(t *testing.T) {
		_, err := NewPresentation(WithJWTCredentials("not-a-jwt"))
		require.EqualError(t, err, "credential is not base64url encoded JWT")
	})
}

func TestParsePresentation_JSON(t *testing.T) {
	vp, err := ParsePresentation([]byte(validPresentation), WithPresDisabledProofCheck())
	require.NoError(t, err)

	require.Equal(t, "urn:uuid:3978344f-8596-4c3a-a978-8fcaba3903c5", vp.ID)
	require.Equal(t, "did:example:ebfeb1f712ebc6f1c276e12ec21", vp.Holder)
	require.Len(t, vp.Credentials(), 1)
	require.Empty(t, vp.JWT)

	t.Run("type is required", func(t *testing.T) {
		_, err := ParsePresentation(
			[]byte(`{"@context":["https://www.w3.org/2018/credentials/v1"]}`),
			WithPresDisabledProofCheck())
		require.Error(t, err)
	})

	t.Run("embedded proof can be required", func(t *testing.T) {
		_, err := ParsePresentation([]byte(validPresentation),
			WithPresDisabledProofCheck(), WithPresRequireProof())
		require.EqualError(t, err, "embedded proof is missing")
	})

	t.Run("credentials can be required", func(t *testing.T) {
		noVC := `{
  "@context": ["https://www.w3.org/2018/credentials/v1"],
  "type": ["VerifiablePresentation"],
  "holder": "did:example:ebfeb1f712ebc6f1c276e12ec21"
}`

		_, err := ParsePresentation([]byte(noVC),
			WithPresDisabledProofCheck(), WithPresRequireVC())
		require.Error(t, err)
		require.Contains(t, err.Error(), "verifiableCredential is required")

		_, err = ParsePresentation([]byte(noVC), WithPresDisabledProofCheck())
		require.NoError(t, err)
	})
}

func TestPresentation_JWTRoundTrip(t *testing.T) {
	holderPubKey, holderPrivKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	issuerPubKey, issuerPrivKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	// credential issued by the issuer for the holder
	vc, err := ParseCredential([]byte(validCredential))
	require.NoError(t, err)

	vcClaims, err := vc.JWTClaims(false)
	require.NoError(t, err)

	vcJWS, err := vcClaims.MarshalJWS(EdDSA, &ed25519TestSigner{privKey: issuerPrivKey},
		"did:example:76e12ec712ebc6f1c221ebfeb1f#key-1")
	require.NoError(t, err)

	// presentation signed by the holder
	vp, err := NewPresentation(WithJWTCredentials(vcJWS))
	require.NoError(t, err)

	vp.ID = "urn:uuid:3978344f-8596-4c3a-a978-8fcaba3903c5"
	vp.Holder = "did:example:ebfeb1f712ebc6f1c276e12ec21"

	vpClaims, err := vp.JWTClaims(nil, false)
	require.NoError(t, err)

	vpJWS, err := vpClaims.MarshalJWS(EdDSA, &ed25519TestSigner{privKey: holderPrivKey},
		"did:example:ebfeb1f712ebc6f1c276e12ec21#key-1")
	require.NoError(t, err)

	fetcher := func(issuerID, keyID string) (*sigverifier.PublicKey, error) {
		switch issuerID {
		case "did:example:ebfeb1f712ebc6f1c276e12ec21":
			return &sigverifier.PublicKey{Type: "Ed25519VerificationKey2018", Value: holderPubKey}, nil
		case "did:example:76e12ec712ebc6f1c221ebfeb1f":
			return &sigverifier.PublicKey{Type: "Ed25519VerificationKey2018", Value: issuerPubKey}, nil
		default:
			return nil, errUnknownIssuer(issuerID)
		}
	}

	parsed, err := ParsePresentation([]byte(vpJWS), WithPresPublicKeyFetcher(fetcher))
	require.NoError(t, err)

	require.Equal(t, vpJWS, parsed.JWT)
	require.Equal(t, vp.ID, parsed.ID)
	require.Equal(t, "did:example:ebfeb1f712ebc6f1c276e12ec21", parsed.Holder)

	// the embedded JWT credential is decoded into a Credential
	require.Len(t, parsed.Credentials(), 1)

	embedded, ok := parsed.Credentials()[0].(*Credential)
	require.True(t, ok)
	require.Equal(t, vcJWS, embedded.JWT)
	require.Equal(t, "did:example:76e12ec712ebc6f1c221ebfeb1f", embedded.Issuer.ID)

	t.Run("fetcher is required", func(t *testing.T) {
		_, err := ParsePresentation([]byte(vpJWS))
		require.EqualError(t, err, "public key fetcher is not defined")
	})

	t.Run("wrong holder key fails verification", func(t *testing.T) {
		otherPubKey, _, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		_, err = ParsePresentation([]byte(vpJWS),
			WithPresPublicKeyFetcher(func(issuerID, keyID string) (*sigverifier.PublicKey, error) {
				return &sigverifier.PublicKey{Type: "Ed25519VerificationKey2018", Value: otherPubKey}, nil
			}))
		require.Error(t, err)
	})

	t.Run("marshal emits the original token", func(t *testing.T) {
		vpBytes, err := parsed.MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, `"`+vpJWS+`"`, string(vpBytes))
	})
}

func TestPresentation_MarshalJSON(t *testing.T) {
	vp, err := ParsePresentation([]byte(validPresentation), WithPresDisabledProofCheck())
	require.NoError(t, err)

	vpBytes, err := vp.MarshalJSON()
	require.NoError(t, err)

	reparsed, err := ParsePresentation(vpBytes, WithPresDisabledProofCheck())
	require.NoError(t, err)
	require.Equal(t, vp.ID, reparsed.ID)
	require.Equal(t, vp.Holder, reparsed.Holder)
	require.Len(t, reparsed.Credentials(), 1)
}

type errUnknownIssuer string

func (e errUnknownIssuer) Error() string {
	return "unknown issuer: " + string(e)
}
