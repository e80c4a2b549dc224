/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"errors"
	"fmt"

	"github.com/trustframe/vc-go/pkg/doc/jose"
	"github.com/trustframe/vc-go/pkg/doc/verifiable"
)

// ErrorKind classifies a validation error. A rejected token is ordinary output of
// validation, not an exceptional program state, so kinds are data the caller can
// branch on rather than concrete error types.
type ErrorKind int

// Validation error kinds.
const (
	// KindMalformedStructure means the token or its payload does not decode into the
	// expected credential or presentation shape.
	KindMalformedStructure ErrorKind = iota

	// KindInvalidEncoding means a token segment is not valid base64url or JSON text.
	KindInvalidEncoding

	// KindUnsupportedAlgorithm means the token declares an algorithm no verifier is
	// registered for, or alg "none" without the explicit allowance.
	KindUnsupportedAlgorithm

	// KindAlgorithmMismatch means the token algorithm differs from the restriction
	// declared by the resolved verification key.
	KindAlgorithmMismatch

	// KindInvalidSignature means signature verification failed, or no verification key
	// could be obtained for the token.
	KindInvalidSignature

	// KindClaimsMismatch means a registered JWT claim contradicts the corresponding
	// field of the embedded credential or presentation object.
	KindClaimsMismatch

	// KindExpiredOrNotYetValid means the token is outside its validity period.
	KindExpiredOrNotYetValid

	// KindRelationshipViolation means the presentation holder does not satisfy the
	// configured subject-holder relationship.
	KindRelationshipViolation

	// KindStatusRevoked means the credential status resolved to revoked.
	KindStatusRevoked

	// KindStatusResolutionError means the credential status could not be resolved.
	KindStatusResolutionError

	// KindUnsupportedStatusMechanism means the credential declares a status mechanism
	// the engine does not recognize and the policy treats that as a hard error.
	KindUnsupportedStatusMechanism
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindMalformedStructure:
		return "MalformedStructure"
	case KindInvalidEncoding:
		return "InvalidEncoding"
	case KindUnsupportedAlgorithm:
		return "UnsupportedAlgorithm"
	case KindAlgorithmMismatch:
		return "AlgorithmMismatch"
	case KindInvalidSignature:
		return "InvalidSignature"
	case KindClaimsMismatch:
		return "ClaimsMismatch"
	case KindExpiredOrNotYetValid:
		return "ExpiredOrNotYetValid"
	case KindRelationshipViolation:
		return "RelationshipViolation"
	case KindStatusRevoked:
		return "StatusRevoked"
	case KindStatusResolutionError:
		return "StatusResolutionError"
	case KindUnsupportedStatusMechanism:
		return "UnsupportedStatusMechanism"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a validation error carrying its kind and the underlying cause.
type Error struct {
	Kind  ErrorKind
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// Result is the outcome of one validate call. It is constructed once per call and not
// mutated afterwards. On success it carries the decoded object and the token headers;
// on failure Errors is non-empty, ordered by detection stage.
type Result struct {
	Credential   *verifiable.Credential
	Presentation *verifiable.Presentation
	Headers      jose.Headers

	Errors []*Error
}

// Valid reports whether validation found no errors.
func (r *Result) Valid() bool {
	return len(r.Errors) == 0
}

// Err folds the collected errors into a single error, nil when validation passed.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}

	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}

	return errors.Join(errs...)
}

func (r *Result) add(kind ErrorKind, cause error) {
	r.Errors = append(r.Errors, newError(kind, cause))
}
