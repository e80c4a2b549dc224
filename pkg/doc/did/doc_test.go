/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	gojose "github.com/go-jose/go-jose/v3"
	"github.com/multiformats/go-multibase"
	"github.com/stretchr/testify/require"
)

const validDoc = `{
  "@context": ["https://www.w3.org/ns/did/v1"],
  "id": "did:example:123456789abcdefghi",
  "verificationMethod": [
    {
      "id": "did:example:123456789abcdefghi#key-1",
      "type": "Ed25519VerificationKey2018",
      "controller": "did:example:123456789abcdefghi",
      "publicKeyBase58": "FhV92MLqMGanvJbgnGY2Kjxi4tbXZWZbauHW58R9315i"
    }
  ],
  "service": [
    {
      "id": "did:example:123456789abcdefghi#status",
      "type": "CredentialStatusList2017",
      "serviceEndpoint": "https://example.com/status",
      "priority": 0
    }
  ]
}`

func TestParse(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, err := Parse("did:example:123456789abcdefghi")
		require.NoError(t, err)
		require.Equal(t, "did", d.Scheme)
		require.Equal(t, "example", d.Method)
		require.Equal(t, "123456789abcdefghi", d.MethodSpecificID)
		require.Equal(t, "did:example:123456789abcdefghi", d.String())
	})

	t.Run("invalid syntax", func(t *testing.T) {
		for _, invalid := range []string{
			"",
			"did:",
			"did:example",
			"not-a-did",
			"did:EXAMPLE:abc",
		} {
			_, err := Parse(invalid)
			require.Error(t, err, invalid)
		}
	})
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(validDoc))
	require.NoError(t, err)
	require.Equal(t, "did:example:123456789abcdefghi", doc.ID)
	require.Equal(t, []string{"https://www.w3.org/ns/did/v1"}, doc.Context)
	require.Len(t, doc.VerificationMethod, 1)
	require.Len(t, doc.Service, 1)

	require.Equal(t, "Ed25519VerificationKey2018", doc.VerificationMethod[0].Type)
	require.Equal(t, "CredentialStatusList2017", doc.Service[0].Type)
	require.Equal(t, "https://example.com/status", doc.Service[0].ServiceEndpoint)
	require.Contains(t, doc.Service[0].Properties, "priority")

	t.Run("id is required", func(t *testing.T) {
		_, err := ParseDocument([]byte(`{"@context":["https://www.w3.org/ns/did/v1"]}`))
		require.EqualError(t, err, "document id is not defined")
	})

	t.Run("not JSON", func(t *testing.T) {
		_, err := ParseDocument([]byte("not json"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "JSON unmarshalling of did doc bytes failed")
	})
}

func TestDoc_JSONBytes(t *testing.T) {
	doc, err := ParseDocument([]byte(validDoc))
	require.NoError(t, err)

	docBytes, err := doc.JSONBytes()
	require.NoError(t, err)

	reparsed, err := ParseDocument(docBytes)
	require.NoError(t, err)
	require.Equal(t, doc, reparsed)
}

func TestDoc_VerificationMethodByID(t *testing.T) {
	doc, err := ParseDocument([]byte(validDoc))
	require.NoError(t, err)

	t.Run("absolute id", func(t *testing.T) {
		vm, ok := doc.VerificationMethodByID("did:example:123456789abcdefghi#key-1")
		require.True(t, ok)
		require.Equal(t, "did:example:123456789abcdefghi#key-1", vm.ID)
	})

	t.Run("relative fragment", func(t *testing.T) {
		vm, ok := doc.VerificationMethodByID("#key-1")
		require.True(t, ok)
		require.Equal(t, "did:example:123456789abcdefghi#key-1", vm.ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, ok := doc.VerificationMethodByID("#key-2")
		require.False(t, ok)
	})
}

func TestDoc_ServiceByID(t *testing.T) {
	doc, err := ParseDocument([]byte(validDoc))
	require.NoError(t, err)

	_, ok := doc.ServiceByID("#status")
	require.True(t, ok)

	_, ok = doc.ServiceByID("did:example:123456789abcdefghi#status")
	require.True(t, ok)

	_, ok = doc.ServiceByID("#other")
	require.False(t, ok)

	svc, ok := doc.ServiceByType("CredentialStatusList2017")
	require.True(t, ok)
	require.Equal(t, "https://example.com/status", svc.ServiceEndpoint)

	_, ok = doc.ServiceByType("DIDCommMessaging")
	require.False(t, ok)
}

func TestVerificationMethod_VerificationKey(t *testing.T) {
	pubKey, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	t.Run("Ed25519VerificationKey2018", func(t *testing.T) {
		vm := &VerificationMethod{
			ID:              "did:example:issuer#key-1",
			Type:            "Ed25519VerificationKey2018",
			PublicKeyBase58: base58.Encode(pubKey),
		}

		key, err := vm.VerificationKey()
		require.NoError(t, err)
		require.Equal(t, "EdDSA", key.Alg)
		require.Equal(t, []byte(pubKey), key.Value)
	})

	t.Run("Ed25519VerificationKey2018 without key material", func(t *testing.T) {
		vm := &VerificationMethod{Type: "Ed25519VerificationKey2018"}

		_, err := vm.VerificationKey()
		require.EqualError(t, err, "publicKeyBase58 is not defined")
	})

	t.Run("Ed25519VerificationKey2020", func(t *testing.T) {
		multibaseKey, err := multibase.Encode(multibase.Base58BTC,
			append([]byte{0xed, 0x01}, pubKey...))
		require.NoError(t, err)

		vm := &VerificationMethod{
			ID:                 "did:example:issuer#key-2",
			Type:               "Ed25519VerificationKey2020",
			PublicKeyMultibase: multibaseKey,
		}

		key, err := vm.VerificationKey()
		require.NoError(t, err)
		require.Equal(t, "EdDSA", key.Alg)
		require.Equal(t, []byte(pubKey), key.Value)
	})

	t.Run("JsonWebKey2020", func(t *testing.T) {
		jwkBytes, err := json.Marshal(map[string]interface{}{
			"kty": "OKP",
			"crv": "Ed25519",
			"alg": "EdDSA",
			"x":   base64.RawURLEncoding.EncodeToString(pubKey),
		})
		require.NoError(t, err)

		jwk := &gojose.JSONWebKey{}
		require.NoError(t, jwk.UnmarshalJSON(jwkBytes))

		vm := &VerificationMethod{
			ID:           "did:example:issuer#key-3",
			Type:         "JsonWebKey2020",
			PublicKeyJWK: jwk,
		}

		key, err := vm.VerificationKey()
		require.NoError(t, err)
		require.Equal(t, "EdDSA", key.Alg)
		require.Equal(t, ed25519.PublicKey(pubKey), key.Key)
	})

	t.Run("unsupported type", func(t *testing.T) {
		vm := &VerificationMethod{Type: "Bls12381G2Key2020"}

		_, err := vm.VerificationKey()
		require.Error(t, err)
		require.Contains(t, err.Error(), "unsupported verification method type")
	})
}
