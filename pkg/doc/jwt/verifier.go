/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jwt

import (
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v3/json"

	"github.com/trustframe/vc-go/pkg/doc/jose"
	"github.com/trustframe/vc-go/pkg/doc/sigverifier"
)

const issuerClaim = "iss"

// KeyResolver resolves public key based on what and kid.
type KeyResolver interface {

	// Resolve resolves public key.
	Resolve(what, kid string) (*sigverifier.PublicKey, error)
}

// KeyResolverFunc defines function
type KeyResolverFunc func(what, kid string) (*sigverifier.PublicKey, error)

// Resolve resolves public key.
func (k KeyResolverFunc) Resolve(what, kid string) (*sigverifier.PublicKey, error) {
	return k(what, kid)
}

// BasicVerifier defines basic Signed JWT verifier based on Issuer Claim and Key ID JOSE Header.
// The public key is looked up with the resolver and verification is dispatched by the
// declared algorithm through the registry.
type BasicVerifier struct {
	resolver KeyResolver
	registry *sigverifier.Registry
}

// NewVerifier creates a new basic Verifier with all built-in signature algorithms.
func NewVerifier(resolver KeyResolver, opts ...sigverifier.Opt) *BasicVerifier {
	return &BasicVerifier{
		resolver: resolver,
		registry: sigverifier.New(opts...),
	}
}

// Verify verifies JSON Web Token. Public key is fetched using Issuer Claim and Key ID JOSE Header.
func (v BasicVerifier) Verify(joseHeaders jose.Headers, payload, signingInput, signature []byte) error {
	claims := make(map[string]interface{})

	err := json.Unmarshal(payload, &claims)
	if err != nil {
		return fmt.Errorf("read claims from JSON Web Token: %w", err)
	}

	issuer, err := getIssuerClaim(claims)
	if err != nil {
		return fmt.Errorf("read issuer claim: %w", err)
	}

	kid, _ := joseHeaders.KeyID()

	pubKey, err := v.resolver.Resolve(issuer, kid)
	if err != nil {
		return err
	}

	return v.registry.JoseVerifier(pubKey).Verify(joseHeaders, payload, signingInput, signature)
}

func getIssuerClaim(claims map[string]interface{}) (string, error) {
	v, ok := claims[issuerClaim]
	if !ok {
		return "", errors.New("issuer claim is not defined")
	}

	s, ok := v.(string)
	if !ok {
		return "", errors.New("issuer claim is not a string")
	}

	return s, nil
}
