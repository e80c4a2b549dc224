/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"encoding/json"
	"fmt"

	"github.com/trustframe/vc-go/pkg/doc/jose"
	"github.com/trustframe/vc-go/pkg/doc/jwt"
	"github.com/trustframe/vc-go/pkg/doc/sigverifier"
)

// JWSAlgorithm defines JWT signature algorithms of Verifiable Credential.
type JWSAlgorithm int

const (
	// RS256 JWT Algorithm.
	RS256 JWSAlgorithm = iota

	// PS256 JWT Algorithm.
	PS256

	// EdDSA JWT Algorithm.
	EdDSA

	// ECDSASecp256r1 JWT Algorithm.
	ECDSASecp256r1

	// ECDSASecp384r1 JWT Algorithm.
	ECDSASecp384r1

	// ECDSASecp521r1 JWT Algorithm.
	ECDSASecp521r1
)

// Name return the name of the signature algorithm.
func (ja JWSAlgorithm) Name() (string, error) {
	switch ja {
	case RS256:
		return "RS256", nil
	case PS256:
		return "PS256", nil
	case EdDSA:
		return "EdDSA", nil
	case ECDSASecp256r1:
		return "ES256", nil
	case ECDSASecp384r1:
		return "ES384", nil
	case ECDSASecp521r1:
		return "ES512", nil
	default:
		return "", fmt.Errorf("unsupported algorithm: %v", ja)
	}
}

// Signer defines signer interface which is used to sign VC JWT.
type Signer interface {
	Sign(data []byte) ([]byte, error)
	Alg() string
}

// JwtSigner implement jose.Signer interface.
type JwtSigner struct {
	signer  Signer
	headers map[string]interface{}
}

// GetJWTSigner returns JWT Signer.
func GetJWTSigner(signer Signer, algorithm string) *JwtSigner {
	headers := map[string]interface{}{
		jose.HeaderAlgorithm: algorithm,
	}

	return &JwtSigner{signer: signer, headers: headers}
}

// Sign returns signature.
func (s JwtSigner) Sign(data []byte) ([]byte, error) {
	return s.signer.Sign(data)
}

// Headers returns headers.
func (s JwtSigner) Headers() jose.Headers {
	return s.headers
}

// noVerifier is used when no JWT signature verification is needed.
// To be used with precaution.
type noVerifier struct{}

func (v noVerifier) Verify(_ jose.Headers, _, _, _ []byte) error {
	return nil
}

// MarshalJWS serializes JWT claims into signed form (JWS).
func marshalJWS(jwtClaims interface{}, signatureAlg JWSAlgorithm, signer Signer, keyID string) (string, error) {
	algName, err := signatureAlg.Name()
	if err != nil {
		return "", err
	}

	headers := map[string]interface{}{
		jose.HeaderKeyID: keyID,
	}

	token, err := jwt.NewSigned(jwtClaims, headers, GetJWTSigner(signer, algName))
	if err != nil {
		return "", err
	}

	return token.Serialize(false)
}

func unmarshalJWS(rawJwt string, checkProof bool, fetcher PublicKeyFetcher, claims interface{},
	verifierOpts ...sigverifier.Opt) (jose.Headers, error) {
	var verifier jose.SignatureVerifier

	if checkProof {
		verifier = jwt.NewVerifier(jwt.KeyResolverFunc(fetcher), verifierOpts...)
	} else {
		verifier = &noVerifier{}
	}

	jsonWebToken, claimsRaw, err := jwt.Parse(rawJwt,
		jwt.WithSignatureVerifier(verifier),
		jwt.WithIgnoreClaimsMapDecoding(true),
	)
	if err != nil {
		return nil, fmt.Errorf("parse JWT: %w", err)
	}

	err = json.Unmarshal(claimsRaw, claims)
	if err != nil {
		return nil, err
	}

	return jsonWebToken.Headers, nil
}
