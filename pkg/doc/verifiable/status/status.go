/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status resolves the revocation status of a Verifiable Credential.
//
// Three mechanisms are supported, selected by the type of the credentialStatus
// entry: RevocationBitmap2022 (bitstring embedded into a service of the issuer
// DID document), StatusList2021Entry (bitstring carried by a separately fetched
// status list credential) and RevocationTimeframe2024 (validity window carried
// by the status entry itself). All fetches are performed by the caller before
// the check, the package itself does no I/O.
package status

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trustframe/vc-go/pkg/doc/did"
	"github.com/trustframe/vc-go/pkg/doc/verifiable"
)

// maxDecodedSize bounds the decompressed size of a status bitstring.
const maxDecodedSize = 16 << 20 // 16 MiB

var (
	// ErrRevoked is returned by Checker.Check when the credential status resolves to revoked.
	ErrRevoked = errors.New("revoked")

	// ErrUnsupportedMechanism is returned when the credentialStatus type is not recognized.
	ErrUnsupportedMechanism = errors.New("unsupported status mechanism")
)

// Mechanism enumerates the supported credentialStatus mechanisms.
type Mechanism int

const (
	// MechanismRevocationBitmap2022 is a bitstring embedded into the issuer DID document.
	MechanismRevocationBitmap2022 Mechanism = iota

	// MechanismStatusList2021 is a bitstring carried by an external status list credential.
	MechanismStatusList2021

	// MechanismTimeframe2024 is a validity window carried by the status entry.
	MechanismTimeframe2024
)

// MechanismFromType maps a credentialStatus type to the Mechanism tag.
func MechanismFromType(statusType string) (Mechanism, error) {
	switch statusType {
	case RevocationBitmap2022Type:
		return MechanismRevocationBitmap2022, nil
	case StatusList2021Type:
		return MechanismStatusList2021, nil
	case Timeframe2024Type:
		return MechanismTimeframe2024, nil
	default:
		return 0, errors.Wrap(ErrUnsupportedMechanism, statusType)
	}
}

// Checker resolves revocation status of credentials against caller-supplied resources.
type Checker struct {
	issuerDoc      *did.Doc
	listCredential *verifiable.Credential
	now            func() time.Time
}

// Option configures a Checker.
type Option func(*Checker)

// WithIssuerDoc supplies the issuer DID document holding the embedded revocation bitmap service.
func WithIssuerDoc(doc *did.Doc) Option {
	return func(c *Checker) {
		c.issuerDoc = doc
	}
}

// WithStatusListCredential supplies the already fetched and verified external status
// list credential.
func WithStatusListCredential(vc *verifiable.Credential) Option {
	return func(c *Checker) {
		c.listCredential = vc
	}
}

// WithClock supplies the current time source used by the timeframe mechanism.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		c.now = now
	}
}

// NewChecker creates a Checker.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		now: time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Check resolves the revocation status of the credential. It returns ErrRevoked if the
// status resolves to revoked, nil if the credential is not revoked, ErrUnsupportedMechanism
// (wrapped) for an unrecognized credentialStatus type and a different error if the status
// cannot be resolved at all.
func (c *Checker) Check(credential *verifiable.Credential) error {
	if credential.Status == nil {
		return errors.New("credential status is not defined")
	}

	mechanism, err := MechanismFromType(credential.Status.Type)
	if err != nil {
		return err
	}

	switch mechanism {
	case MechanismRevocationBitmap2022:
		return c.checkRevocationBitmap(credential)
	case MechanismStatusList2021:
		return c.checkStatusList(credential)
	case MechanismTimeframe2024:
		return c.checkTimeframe(credential)
	default:
		return errors.Wrap(ErrUnsupportedMechanism, credential.Status.Type)
	}
}
