/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sigverifier dispatches JWS signature verification by the declared JOSE algorithm.
// A Registry is built once, is read-only afterwards and safe for concurrent use.
package sigverifier

import (
	"errors"
	"fmt"

	"github.com/trustframe/vc-go/pkg/doc/jose"
)

// AlgorithmNone is the unsecured JWS algorithm identifier.
const AlgorithmNone = "none"

// Signature verification errors which callers may classify with errors.Is.
var (
	// ErrUnsupportedAlgorithm means no verifier is registered for the declared algorithm.
	ErrUnsupportedAlgorithm = errors.New("unsupported signature algorithm")

	// ErrAlgorithmMismatch means the declared algorithm differs from the one the key is restricted to.
	ErrAlgorithmMismatch = errors.New("algorithm does not match key restriction")

	// ErrUnsecuredNotAllowed means the token declares alg "none" and the caller did not allow it.
	ErrUnsecuredNotAllowed = errors.New("unsecured token is not allowed")

	// ErrSignatureInvalid means the verification routine for the declared algorithm rejected
	// the signature. Signature check is binary, no partial outcome exists.
	ErrSignatureInvalid = errors.New("invalid signature")
)

// PublicKey is a verification key borrowed from a resolved identifier document for
// the duration of one verification call.
type PublicKey struct {
	Type  string
	KeyID string

	// Alg, when non-empty, restricts the key to a single signature algorithm.
	Alg string

	// Value holds raw key bytes (e.g. ed25519 public key, HMAC secret).
	Value []byte

	// Key holds a parsed crypto key (*rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey).
	Key interface{}
}

// VerifyFunc verifies signature over signing input with the given key.
type VerifyFunc func(key *PublicKey, signingInput, signature []byte) error

// Registry maps JOSE algorithm identifiers to verification routines.
type Registry struct {
	custom         map[string]VerifyFunc
	builtin        map[string]VerifyFunc
	allowUnsecured bool
}

// Opt configures a Registry at construction time.
type Opt func(r *Registry)

// WithCustomVerifier registers a verification routine for a domain-specific algorithm.
// Custom registrations take precedence over built-ins.
func WithCustomVerifier(alg string, v VerifyFunc) Opt {
	return func(r *Registry) {
		r.custom[alg] = v
	}
}

// WithUnsecuredAllowed whitelists tokens with alg "none". Off by default.
func WithUnsecuredAllowed() Opt {
	return func(r *Registry) {
		r.allowUnsecured = true
	}
}

// New creates a Registry with all built-in algorithms. The Registry must not be
// mutated after construction.
func New(opts ...Opt) *Registry {
	r := &Registry{
		custom:  make(map[string]VerifyFunc),
		builtin: builtinVerifiers(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Verify checks the signature over signingInput using the key, dispatching on the
// "alg" JOSE header. The header's algorithm must match the key's restriction if the
// key declares one.
func (r *Registry) Verify(joseHeaders jose.Headers, key *PublicKey, signingInput, signature []byte) error {
	alg, ok := joseHeaders.Algorithm()
	if !ok {
		return errors.New("'alg' JOSE header is not present")
	}

	if alg == AlgorithmNone {
		if !r.allowUnsecured {
			return ErrUnsecuredNotAllowed
		}

		if len(signature) > 0 {
			return errors.New("unsecured token with non-empty signature")
		}

		return nil
	}

	if key.Alg != "" && key.Alg != alg {
		return fmt.Errorf("%w: token alg %q, key alg %q", ErrAlgorithmMismatch, alg, key.Alg)
	}

	verify, ok := r.custom[alg]
	if !ok {
		verify, ok = r.builtin[alg]
	}

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}

	if err := verify(key, signingInput, signature); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	return nil
}

// UnsecuredAllowed reports whether tokens with alg "none" are accepted.
func (r *Registry) UnsecuredAllowed() bool {
	return r.allowUnsecured
}

// JoseVerifier adapts the Registry and a single key to the jose.SignatureVerifier shape
// used by jwt.Parse.
func (r *Registry) JoseVerifier(key *PublicKey) jose.SignatureVerifier {
	return jose.SignatureVerifierFunc(func(joseHeaders jose.Headers, _, signingInput, signature []byte) error {
		return r.Verify(joseHeaders, key, signingInput, signature)
	})
}

// SupportedAlgorithms returns all algorithm identifiers the Registry dispatches on.
func (r *Registry) SupportedAlgorithms() []string {
	algs := make([]string, 0, len(r.builtin)+len(r.custom))

	for alg := range r.builtin {
		if _, overridden := r.custom[alg]; !overridden {
			algs = append(algs, alg)
		}
	}

	for alg := range r.custom {
		algs = append(algs, alg)
	}

	return algs
}
