/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/trustframe/vc-go/pkg/doc/did"
	"github.com/trustframe/vc-go/pkg/doc/jwt"
	"github.com/trustframe/vc-go/pkg/doc/sigverifier"
	"github.com/trustframe/vc-go/pkg/doc/verifiable"
)

// IssuerDocResolver supplies the resolved document of a credential issuer. The
// resolver is called by ValidatePresentation for each distinct issuer of the embedded
// credentials; the engine itself performs no network lookups.
type IssuerDocResolver func(issuerID string) (*did.Doc, error)

// ValidatePresentation validates a presentation token against the holder document the
// caller already resolved. Each embedded credential is validated with the same
// options, except that the status policy may be overridden with
// WithEmbeddedCredentialStatusCheck. Presentations nested inside a presentation are
// rejected.
func ValidatePresentation(vpJWT string, holderDoc *did.Doc, resolveIssuer IssuerDocResolver, opts ...Option) *Result {
	o := newOptions(opts...)
	r := &Result{}

	if holderDoc == nil {
		r.add(KindInvalidSignature, fmt.Errorf("%w: holder document is not provided", errKeyResolution))

		return r
	}

	if !jwt.IsJWS(vpJWT) && !jwt.IsJWTUnsecured(vpJWT) {
		r.add(KindMalformedStructure, errors.New("presentation token is not in compact serialization"))

		return r
	}

	if jwt.IsJWTUnsecured(vpJWT) && !sigverifier.New(o.verifierOpts...).UnsecuredAllowed() {
		r.add(KindUnsupportedAlgorithm, sigverifier.ErrUnsecuredNotAllowed)

		return r
	}

	headers, claims, err := decodeTokenClaims(vpJWT)
	if err != nil {
		r.add(classifyDecodeError(err), err)

		return r
	}

	if claims.VP == nil {
		r.add(KindMalformedStructure, errors.New("JWT 'vp' claim is not defined"))

		return r
	}

	vp := parsePresentationToken(vpJWT, presentationKeyFetcher(holderDoc, resolveIssuer), o, r)
	if vp == nil {
		return r
	}

	r.Presentation = vp
	r.Headers = headers

	if !checkPresentationTemporal(claims, o, r) && o.failFast {
		return r
	}

	if !checkPresentationIdentity(claims, r) && o.failFast {
		return r
	}

	creds, ok := validateEmbeddedCredentials(vp, resolveIssuer, o, r)
	if !ok && o.failFast {
		return r
	}

	checkSubjectHolderRelationship(vp, creds, o, r)

	return r
}

func parsePresentationToken(vpJWT string, fetcher verifiable.PublicKeyFetcher, o *options, r *Result) *verifiable.Presentation {
	vp, err := verifiable.ParsePresentation([]byte(vpJWT),
		verifiable.WithPresPublicKeyFetcher(fetcher),
		verifiable.WithPresSignatureVerifierOpts(o.verifierOpts...))
	if err == nil {
		return vp
	}

	kind := classifyDecodeError(err)
	r.add(kind, err)

	if o.failFast || !isSignatureKind(kind) {
		return nil
	}

	unverified, uErr := verifiable.ParsePresentation([]byte(vpJWT), verifiable.WithPresDisabledProofCheck())
	if uErr != nil {
		return nil
	}

	return unverified
}

func checkPresentationTemporal(claims *tokenClaims, o *options, r *Result) bool {
	now := o.now()
	ok := true

	if o.expiryCheck && claims.Expiry != nil && now.After(claims.Expiry.Time().Add(o.expiryLeeway)) {
		r.add(KindExpiredOrNotYetValid,
			fmt.Errorf("presentation expired at %s", claims.Expiry.Time().UTC().Format(time.RFC3339)))

		ok = false
	}

	if o.issuanceCheck {
		notBefore := claims.NotBefore
		if notBefore == nil {
			notBefore = claims.IssuedAt
		}

		if notBefore != nil && notBefore.Time().After(now.Add(o.expiryLeeway)) {
			r.add(KindExpiredOrNotYetValid,
				fmt.Errorf("presentation is not valid before %s", notBefore.Time().UTC().Format(time.RFC3339)))

			ok = false
		}
	}

	return ok
}

func checkPresentationIdentity(claims *tokenClaims, r *Result) bool {
	if claims.Issuer == "" {
		return true
	}

	holder, _ := claims.VP["holder"].(string)
	if holder != "" && holder != claims.Issuer {
		r.add(KindClaimsMismatch,
			fmt.Errorf("iss claim %q does not match presentation holder %q", claims.Issuer, holder))

		return false
	}

	return true
}

// validateEmbeddedCredentials runs the claims stages over every credential carried by
// the presentation. Signatures of token-form credentials were already verified while
// parsing the presentation, but unsecured tokens pass that parse unverified and are
// gated here against the same allowance as the outer token.
func validateEmbeddedCredentials(vp *verifiable.Presentation, resolveIssuer IssuerDocResolver,
	o *options, r *Result) ([]*verifiable.Credential, bool) {
	child := *o
	if o.embeddedStatusCheck != nil {
		child.statusCheck = *o.embeddedStatusCheck
	}

	unsecuredAllowed := sigverifier.New(o.verifierOpts...).UnsecuredAllowed()

	var creds []*verifiable.Credential

	ok := true

	for _, raw := range vp.Credentials() {
		vc := decodeEmbeddedCredential(raw, r)
		if vc == nil {
			ok = false
			if o.failFast {
				return creds, false
			}

			continue
		}

		if vc.JWT != "" && jwt.IsJWTUnsecured(vc.JWT) && !unsecuredAllowed {
			r.add(KindUnsupportedAlgorithm,
				fmt.Errorf("embedded credential %s: %w", vc.ID, sigverifier.ErrUnsecuredNotAllowed))

			ok = false
			if o.failFast {
				return creds, false
			}

			continue
		}

		creds = append(creds, vc)

		if !checkCredentialTemporal(vc, &child, r) {
			ok = false
			if o.failFast {
				return creds, false
			}
		}

		if vc.JWT != "" {
			if _, claims, err := decodeTokenClaims(vc.JWT); err == nil {
				if !checkCredentialIdentity(claims, r) {
					ok = false
					if o.failFast {
						return creds, false
					}
				}
			}
		}

		if !checkEmbeddedCredentialStatus(vc, resolveIssuer, &child, r) {
			ok = false
			if o.failFast {
				return creds, false
			}
		}
	}

	return creds, ok
}

func decodeEmbeddedCredential(raw interface{}, r *Result) *verifiable.Credential {
	switch cred := raw.(type) {
	case *verifiable.Credential:
		return cred

	case map[string]interface{}:
		credBytes, err := json.Marshal(cred)
		if err != nil {
			r.add(KindMalformedStructure, fmt.Errorf("marshal embedded credential: %w", err))

			return nil
		}

		vc, err := verifiable.ParseCredential(credBytes, verifiable.WithDisabledProofCheck())
		if err != nil {
			r.add(KindMalformedStructure, fmt.Errorf("embedded credential: %w", err))

			return nil
		}

		return vc

	default:
		r.add(KindMalformedStructure, fmt.Errorf("unsupported embedded credential format %T", raw))

		return nil
	}
}

func checkEmbeddedCredentialStatus(vc *verifiable.Credential, resolveIssuer IssuerDocResolver,
	o *options, r *Result) bool {
	if o.statusCheck == StatusCheckNever || vc.Status == nil {
		return true
	}

	var issuerDoc *did.Doc

	if resolveIssuer != nil {
		doc, err := resolveIssuer(vc.Issuer.ID)
		if err != nil {
			r.add(KindStatusResolutionError,
				fmt.Errorf("resolve issuer document %q: %w", vc.Issuer.ID, err))

			return false
		}

		issuerDoc = doc
	}

	return checkCredentialStatus(vc, issuerDoc, o, r)
}

func checkSubjectHolderRelationship(vp *verifiable.Presentation, creds []*verifiable.Credential,
	o *options, r *Result) bool {
	if o.relationship == AnySubjectHolder {
		return true
	}

	ok := true

	for _, vc := range creds {
		if o.relationship == SubjectOnNonTransferable && !nonTransferable(vc) {
			continue
		}

		subjectID, err := verifiable.SubjectID(vc.Subject)
		if err != nil {
			r.add(KindRelationshipViolation, fmt.Errorf("credential %s: %w", vc.ID, err))

			ok = false
		} else if subjectID != vp.Holder {
			r.add(KindRelationshipViolation,
				fmt.Errorf("holder %q is not the subject %q of credential %s", vp.Holder, subjectID, vc.ID))

			ok = false
		}

		if !ok && o.failFast {
			return false
		}
	}

	return ok
}

func nonTransferable(vc *verifiable.Credential) bool {
	v, ok := vc.CustomFields["nonTransferable"].(bool)

	return ok && v
}

// presentationKeyFetcher serves the holder's keys for the presentation token itself
// and resolves issuer documents for the embedded credential tokens.
func presentationKeyFetcher(holderDoc *did.Doc, resolveIssuer IssuerDocResolver) verifiable.PublicKeyFetcher {
	holderFetch := docKeyFetcher(holderDoc)

	return func(issuerID, keyID string) (*sigverifier.PublicKey, error) {
		if issuerID == "" || issuerID == holderDoc.ID {
			return holderFetch(issuerID, keyID)
		}

		if resolveIssuer == nil {
			return nil, fmt.Errorf("%w: no resolver for issuer %q", errKeyResolution, issuerID)
		}

		doc, err := resolveIssuer(issuerID)
		if err != nil {
			return nil, fmt.Errorf("%w: issuer document %q: %s", errKeyResolution, issuerID, err)
		}

		return docKeyFetcher(doc)(issuerID, keyID)
	}
}
