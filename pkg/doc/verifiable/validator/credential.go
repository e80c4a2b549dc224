/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package validator composes token decoding, signature verification, claims cross
// checks and revocation status resolution into the validate entry points for
// credentials and presentations. Validation is synchronous and performs no I/O; key
// material, identifier documents and external status lists are supplied by the caller
// as already resolved values. Each call is independent, so validating tokens
// concurrently needs no locking.
package validator

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/trustframe/vc-go/pkg/doc/did"
	"github.com/trustframe/vc-go/pkg/doc/jose"
	"github.com/trustframe/vc-go/pkg/doc/jwt"
	"github.com/trustframe/vc-go/pkg/doc/sigverifier"
	"github.com/trustframe/vc-go/pkg/doc/verifiable"
	"github.com/trustframe/vc-go/pkg/doc/verifiable/status"
)

// errKeyResolution marks failures to obtain a verification key, as opposed to failures
// of the signature check itself.
var errKeyResolution = errors.New("resolve verification key")

// tokenClaims is the undecoded-claims view of a credential or presentation token,
// used for cross checks between registered JWT claims and the embedded object. The
// embedded object is kept as a raw map because parsing refines the model fields from
// the registered claims, which would mask a mismatch.
type tokenClaims struct {
	jwt.Claims

	VC map[string]interface{} `json:"vc,omitempty"`
	VP map[string]interface{} `json:"vp,omitempty"`
}

// ValidateCredential validates a credential token against the issuer document the
// caller already resolved. Stages run in fixed order; by default the first failing
// stage aborts validation, WithFailAll accumulates errors from all stages instead.
func ValidateCredential(vcJWT string, issuerDoc *did.Doc, opts ...Option) *Result {
	return validateCredential(vcJWT, issuerDoc, newOptions(opts...))
}

func validateCredential(vcJWT string, issuerDoc *did.Doc, o *options) *Result {
	r := &Result{}

	if issuerDoc == nil {
		r.add(KindInvalidSignature, fmt.Errorf("%w: issuer document is not provided", errKeyResolution))

		return r
	}

	if !jwt.IsJWS(vcJWT) && !jwt.IsJWTUnsecured(vcJWT) {
		r.add(KindMalformedStructure, errors.New("credential token is not in compact serialization"))

		return r
	}

	if jwt.IsJWTUnsecured(vcJWT) && !sigverifier.New(o.verifierOpts...).UnsecuredAllowed() {
		r.add(KindUnsupportedAlgorithm, sigverifier.ErrUnsecuredNotAllowed)

		return r
	}

	headers, claims, err := decodeTokenClaims(vcJWT)
	if err != nil {
		r.add(classifyDecodeError(err), err)

		return r
	}

	vc := parseCredentialToken(vcJWT, docKeyFetcher(issuerDoc), o, r)
	if vc == nil {
		return r
	}

	r.Credential = vc
	r.Headers = headers

	if !checkCredentialTemporal(vc, o, r) && o.failFast {
		return r
	}

	if !checkCredentialIdentity(claims, r) && o.failFast {
		return r
	}

	checkCredentialStatus(vc, issuerDoc, o, r)

	return r
}

// parseCredentialToken runs the structural stage together with signature
// verification. When only the signature is at fault and all errors were requested, the
// token is re-decoded without proof checking so the remaining stages can still report
// their findings.
func parseCredentialToken(vcJWT string, fetcher verifiable.PublicKeyFetcher, o *options, r *Result) *verifiable.Credential {
	vc, err := verifiable.ParseCredential([]byte(vcJWT),
		verifiable.WithPublicKeyFetcher(fetcher),
		verifiable.WithSignatureVerifierOpts(o.verifierOpts...))
	if err == nil {
		return vc
	}

	kind := classifyDecodeError(err)
	r.add(kind, err)

	if o.failFast || !isSignatureKind(kind) {
		return nil
	}

	unverified, uErr := verifiable.ParseCredential([]byte(vcJWT), verifiable.WithDisabledProofCheck())
	if uErr != nil {
		return nil
	}

	return unverified
}

func checkCredentialTemporal(vc *verifiable.Credential, o *options, r *Result) bool {
	now := o.now()
	ok := true

	if o.expiryCheck && vc.Expired != nil && now.After(vc.Expired.Time.Add(o.expiryLeeway)) {
		r.add(KindExpiredOrNotYetValid,
			fmt.Errorf("credential expired at %s", vc.Expired.Time.Format(time.RFC3339)))

		ok = false
	}

	if o.issuanceCheck && vc.Issued != nil && vc.Issued.Time.After(now.Add(o.expiryLeeway)) {
		r.add(KindExpiredOrNotYetValid,
			fmt.Errorf("credential is not valid before %s", vc.Issued.Time.Format(time.RFC3339)))

		ok = false
	}

	return ok
}

// checkCredentialIdentity compares the registered iss and sub claims against the
// issuer and subject of the raw vc object. Absent claims or absent object fields pass.
func checkCredentialIdentity(claims *tokenClaims, r *Result) bool {
	ok := true

	if claims.Issuer != "" {
		if issuerID := issuerIDFromMap(claims.VC); issuerID != "" && issuerID != claims.Issuer {
			r.add(KindClaimsMismatch,
				fmt.Errorf("iss claim %q does not match credential issuer %q", claims.Issuer, issuerID))

			ok = false
		}
	}

	if claims.Subject != "" {
		if subjectID := subjectIDFromMap(claims.VC); subjectID != "" && subjectID != claims.Subject {
			r.add(KindClaimsMismatch,
				fmt.Errorf("sub claim %q does not match credential subject %q", claims.Subject, subjectID))

			ok = false
		}
	}

	return ok
}

func checkCredentialStatus(vc *verifiable.Credential, issuerDoc *did.Doc, o *options, r *Result) bool {
	if o.statusCheck == StatusCheckNever || vc.Status == nil {
		return true
	}

	checker := status.NewChecker(
		status.WithIssuerDoc(issuerDoc),
		status.WithStatusListCredential(o.listCredential),
		status.WithClock(o.now))

	err := checker.Check(vc)

	switch {
	case err == nil:
		return true

	case errors.Is(err, status.ErrRevoked):
		r.add(KindStatusRevoked, err)

	case errors.Is(err, status.ErrUnsupportedMechanism):
		if o.statusCheck == StatusCheckSkipUnsupported {
			return true
		}

		r.add(KindUnsupportedStatusMechanism, err)

	default:
		r.add(KindStatusResolutionError, err)
	}

	return false
}

// docKeyFetcher looks up verification keys in a single resolved document, ignoring the
// issuer identifier of the token.
func docKeyFetcher(doc *did.Doc) verifiable.PublicKeyFetcher {
	return func(_, keyID string) (*sigverifier.PublicKey, error) {
		vm, ok := doc.VerificationMethodByID(keyID)
		if !ok {
			return nil, fmt.Errorf("%w: verification method %q is not found in document %s",
				errKeyResolution, keyID, doc.ID)
		}

		key, err := vm.VerificationKey()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", errKeyResolution, err)
		}

		return key, nil
	}
}

// decodeTokenClaims decodes the token headers and claims without verifying the
// signature.
func decodeTokenClaims(token string) (jose.Headers, *tokenClaims, error) {
	passThrough := jose.SignatureVerifierFunc(
		func(_ jose.Headers, _, _, _ []byte) error {
			return nil
		})

	parsed, payload, err := jwt.Parse(token,
		jwt.WithSignatureVerifier(passThrough),
		jwt.WithIgnoreClaimsMapDecoding(true))
	if err != nil {
		return nil, nil, err
	}

	claims := &tokenClaims{}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, nil, fmt.Errorf("decode token claims: %w", err)
	}

	return parsed.Headers, claims, nil
}

func classifyDecodeError(err error) ErrorKind {
	var corruptInput base64.CorruptInputError

	switch {
	case errors.Is(err, sigverifier.ErrAlgorithmMismatch):
		return KindAlgorithmMismatch

	case errors.Is(err, sigverifier.ErrUnsupportedAlgorithm),
		errors.Is(err, sigverifier.ErrUnsecuredNotAllowed):
		return KindUnsupportedAlgorithm

	case errors.Is(err, sigverifier.ErrSignatureInvalid),
		errors.Is(err, errKeyResolution):
		return KindInvalidSignature

	case errors.As(err, &corruptInput):
		return KindInvalidEncoding

	default:
		return KindMalformedStructure
	}
}

func isSignatureKind(kind ErrorKind) bool {
	return kind == KindInvalidSignature || kind == KindUnsupportedAlgorithm || kind == KindAlgorithmMismatch
}

func issuerIDFromMap(vcMap map[string]interface{}) string {
	switch issuer := vcMap["issuer"].(type) {
	case string:
		return issuer
	case map[string]interface{}:
		id, _ := issuer["id"].(string)

		return id
	default:
		return ""
	}
}

func subjectIDFromMap(vcMap map[string]interface{}) string {
	switch subject := vcMap["credentialSubject"].(type) {
	case string:
		return subject
	case map[string]interface{}:
		id, _ := subject["id"].(string)

		return id
	case []interface{}:
		if len(subject) != 1 {
			return ""
		}

		if single, ok := subject[0].(map[string]interface{}); ok {
			id, _ := single["id"].(string)

			return id
		}

		return ""
	default:
		return ""
	}
}
