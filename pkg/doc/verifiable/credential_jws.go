/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"fmt"

	"github.com/trustframe/vc-go/pkg/doc/jose"
	"github.com/trustframe/vc-go/pkg/doc/sigverifier"
)

// MarshalJWS serializes JWT into signed form (JWS).
func (jcc *JWTCredClaims) MarshalJWS(signatureAlg JWSAlgorithm, signer Signer, keyID string) (string, error) {
	return marshalJWS(jcc, signatureAlg, signer, keyID)
}

func unmarshalJWSClaims(rawJwt string, checkProof bool, fetcher PublicKeyFetcher,
	verifierOpts []sigverifier.Opt) (jose.Headers, *JWTCredClaims, error) {
	var claims JWTCredClaims

	joseHeaders, err := unmarshalJWS(rawJwt, checkProof, fetcher, &claims, verifierOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("parse VC in JWS form: %w", err)
	}

	return joseHeaders, &claims, nil
}

// decodeCredJWS parses JWT claims from serialized token with the signature verification.
func decodeCredJWS(rawJwt string, checkProof bool, fetcher PublicKeyFetcher,
	verifierOpts ...sigverifier.Opt) ([]byte, error) {
	return decodeCredJWT(rawJwt, func(vcJWTBytes string) (jose.Headers, *JWTCredClaims, error) {
		return unmarshalJWSClaims(rawJwt, checkProof, fetcher, verifierOpts)
	})
}
