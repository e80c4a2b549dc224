/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package validator

import (
	"time"

	"github.com/trustframe/vc-go/pkg/doc/sigverifier"
	"github.com/trustframe/vc-go/pkg/doc/verifiable"
)

// StatusCheck is the revocation status checking policy.
type StatusCheck int

const (
	// StatusCheckNever skips the status stage entirely.
	StatusCheckNever StatusCheck = iota

	// StatusCheckSkipUnsupported checks status but treats an unrecognized status
	// mechanism as pass-through rather than an error.
	StatusCheckSkipUnsupported

	// StatusCheckAlways checks status and treats an unrecognized status mechanism as
	// a hard error.
	StatusCheckAlways
)

// SubjectHolderRelationship constrains how the presentation holder must relate to the
// subjects of the embedded credentials.
type SubjectHolderRelationship int

const (
	// AlwaysSubject requires the holder to be the subject of every embedded credential.
	AlwaysSubject SubjectHolderRelationship = iota

	// SubjectOnNonTransferable requires the holder to be the subject only for
	// credentials carrying the nonTransferable property.
	SubjectOnNonTransferable

	// AnySubjectHolder skips the relationship check.
	AnySubjectHolder
)

type options struct {
	expiryCheck   bool
	issuanceCheck bool
	expiryLeeway  time.Duration

	statusCheck         StatusCheck
	embeddedStatusCheck *StatusCheck

	relationship SubjectHolderRelationship

	failFast bool
	now      func() time.Time

	listCredential *verifiable.Credential
	verifierOpts   []sigverifier.Opt
}

// Option configures a single validate call.
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		expiryCheck:   true,
		issuanceCheck: true,
		relationship:  SubjectOnNonTransferable,
		failFast:      true,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// WithExpiryCheckDisabled turns off the expiry comparison of the temporal stage.
func WithExpiryCheckDisabled() Option {
	return func(o *options) {
		o.expiryCheck = false
	}
}

// WithIssuanceCheckDisabled turns off the not-before/issued-at comparison of the
// temporal stage.
func WithIssuanceCheckDisabled() Option {
	return func(o *options) {
		o.issuanceCheck = false
	}
}

// WithExpiryLeeway allows the given clock skew when comparing temporal claims against
// the current time.
func WithExpiryLeeway(leeway time.Duration) Option {
	return func(o *options) {
		o.expiryLeeway = leeway
	}
}

// WithStatusCheck sets the revocation status checking policy. The default is
// StatusCheckNever.
func WithStatusCheck(policy StatusCheck) Option {
	return func(o *options) {
		o.statusCheck = policy
	}
}

// WithEmbeddedCredentialStatusCheck overrides the status checking policy for
// credentials embedded in a presentation. Without it embedded credentials inherit the
// presentation's policy.
func WithEmbeddedCredentialStatusCheck(policy StatusCheck) Option {
	return func(o *options) {
		o.embeddedStatusCheck = &policy
	}
}

// WithSubjectHolderRelationship sets the required relationship between the
// presentation holder and the embedded credential subjects. The default is
// SubjectOnNonTransferable.
func WithSubjectHolderRelationship(rel SubjectHolderRelationship) Option {
	return func(o *options) {
		o.relationship = rel
	}
}

// WithFailAll makes validation run every stage and accumulate all errors in stage
// order instead of aborting at the first failing stage.
func WithFailAll() Option {
	return func(o *options) {
		o.failFast = false
	}
}

// WithClock injects the current time source. Validation is a pure function of its
// inputs and the clock, so tests inject a fixed time here.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithStatusListCredential supplies the already fetched external status list
// credential consulted by the StatusList2021Entry mechanism. The engine performs no
// fetches itself.
func WithStatusListCredential(vc *verifiable.Credential) Option {
	return func(o *options) {
		o.listCredential = vc
	}
}

// WithSignatureVerifierOpts passes verifier registry options to signature checking,
// for example custom algorithm verifiers or the unsecured token allowance.
func WithSignatureVerifierOpts(opts ...sigverifier.Opt) Option {
	return func(o *options) {
		o.verifierOpts = opts
	}
}
