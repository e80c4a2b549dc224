/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type testSigner struct {
	privKey ed25519.PrivateKey
	headers Headers
}

func (s *testSigner) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(s.privKey, data), nil
}

func (s *testSigner) Headers() Headers {
	return s.headers
}

type testVerifier struct {
	pubKey ed25519.PublicKey
}

func (v *testVerifier) Verify(_ Headers, _, signingInput, signature []byte) error {
	if !ed25519.Verify(v.pubKey, signingInput, signature) {
		return errors.New("signature doesn't match")
	}

	return nil
}

func TestJWS_RoundTrip(t *testing.T) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer := &testSigner{
		privKey: privKey,
		headers: Headers{HeaderAlgorithm: "EdDSA"},
	}

	payload := []byte(`{"iss":"did:example:issuer","custom":"value"}`)

	jws, err := NewJWS(Headers{HeaderKeyID: "did:example:issuer#key-1"}, nil, payload, signer)
	require.NoError(t, err)

	serialized, err := jws.SerializeCompact(false)
	require.NoError(t, err)
	require.Len(t, strings.Split(serialized, "."), 3)

	parsed, err := ParseJWS(serialized, &testVerifier{pubKey: pubKey})
	require.NoError(t, err)
	require.Equal(t, payload, parsed.Payload)

	alg, ok := parsed.ProtectedHeaders.Algorithm()
	require.True(t, ok)
	require.Equal(t, "EdDSA", alg)

	kid, ok := parsed.ProtectedHeaders.KeyID()
	require.True(t, ok)
	require.Equal(t, "did:example:issuer#key-1", kid)

	// serialization of a parsed JWS reuses the original segments byte for byte
	reSerialized, err := parsed.SerializeCompact(false)
	require.NoError(t, err)
	require.Equal(t, serialized, reSerialized)
}

func TestJWS_SigningInputIsNotRederived(t *testing.T) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	// build a token whose payload segment uses base64url with padding stripped in a
	// non-canonical way: the signature must be checked over the original segments
	headerB64 := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"EdDSA"}`))
	payloadB64 := base64.RawURLEncoding.EncodeToString([]byte(`{"iss":"did:example:issuer"} `))
	signingInput := headerB64 + "." + payloadB64
	sigB64 := base64.RawURLEncoding.EncodeToString(ed25519.Sign(privKey, []byte(signingInput)))

	serialized := signingInput + "." + sigB64

	parsed, err := ParseJWS(serialized, &testVerifier{pubKey: pubKey})
	require.NoError(t, err)

	reSerialized, err := parsed.SerializeCompact(false)
	require.NoError(t, err)
	require.Equal(t, serialized, reSerialized)
}

func TestJWS_ParseErrors(t *testing.T) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	verifier := &testVerifier{pubKey: pubKey}

	signer := &testSigner{privKey: privKey, headers: Headers{HeaderAlgorithm: "EdDSA"}}

	jws, err := NewJWS(nil, nil, []byte(`{"iss":"did:example:issuer"}`), signer)
	require.NoError(t, err)

	serialized, err := jws.SerializeCompact(false)
	require.NoError(t, err)

	t.Run("not compact form", func(t *testing.T) {
		_, err := ParseJWS("too.few", verifier)
		require.Error(t, err)
	})

	t.Run("header is not base64url", func(t *testing.T) {
		parts := strings.Split(serialized, ".")

		_, err := ParseJWS("!!!."+parts[1]+"."+parts[2], verifier)
		require.Error(t, err)
		require.Contains(t, err.Error(), "decode base64 header")
	})

	t.Run("header is not a JSON object", func(t *testing.T) {
		parts := strings.Split(serialized, ".")
		badHeader := base64.RawURLEncoding.EncodeToString([]byte("not json"))

		_, err := ParseJWS(badHeader+"."+parts[1]+"."+parts[2], verifier)
		require.Error(t, err)
		require.Contains(t, err.Error(), "unmarshal JSON headers")
	})

	t.Run("missing alg header", func(t *testing.T) {
		parts := strings.Split(serialized, ".")
		noAlg := base64.RawURLEncoding.EncodeToString([]byte(`{"kid":"key-1"}`))

		_, err := ParseJWS(noAlg+"."+parts[1]+"."+parts[2], verifier)
		require.EqualError(t, err, "alg JWS header is not defined")
	})

	t.Run("corrupted signature", func(t *testing.T) {
		parts := strings.Split(serialized, ".")
		sig, err := base64.RawURLEncoding.DecodeString(parts[2])
		require.NoError(t, err)

		sig[0] ^= 0x01

		corrupted := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(sig)

		_, err = ParseJWS(corrupted, verifier)
		require.Error(t, err)
		require.Contains(t, err.Error(), "signature doesn't match")
	})
}

func TestJWS_DetachedPayload(t *testing.T) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer := &testSigner{privKey: privKey, headers: Headers{HeaderAlgorithm: "EdDSA"}}
	payload := []byte(`{"iss":"did:example:issuer"}`)

	jws, err := NewJWS(nil, nil, payload, signer)
	require.NoError(t, err)

	detached, err := jws.SerializeCompact(true)
	require.NoError(t, err)

	parts := strings.Split(detached, ".")
	require.Len(t, parts, 3)
	require.Empty(t, parts[1])

	parsed, err := ParseJWS(detached, &testVerifier{pubKey: pubKey}, WithJWSDetachedPayload(payload))
	require.NoError(t, err)
	require.Equal(t, payload, parsed.Payload)
}

func TestIsCompactJWS(t *testing.T) {
	require.True(t, IsCompactJWS("a.b.c"))
	require.True(t, IsCompactJWS("a.b."))
	require.False(t, IsCompactJWS("a.b"))
	require.False(t, IsCompactJWS("abc"))
}
