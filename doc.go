/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vcgo enables Go developers to issue and verify W3C Verifiable Credentials
// and Verifiable Presentations in signed JWT form.
//
// Packages for end developer usage
//
// pkg/doc/verifiable: Data models of Verifiable Credentials and Presentations with
// parsing, JWT signing and serialization.
// Reference: https://pkg.go.dev/github.com/trustframe/vc-go/pkg/doc/verifiable
//
// pkg/doc/verifiable/validator: The validation engine. Runs structural, temporal,
// identity, relationship and status checks over credential and presentation tokens
// and reports classified errors.
// Reference: https://pkg.go.dev/github.com/trustframe/vc-go/pkg/doc/verifiable/validator
//
// pkg/doc/verifiable/status: Revocation status checking with the
// RevocationBitmap2022, StatusList2021Entry and RevocationTimeframe2024 mechanisms.
// Reference: https://pkg.go.dev/github.com/trustframe/vc-go/pkg/doc/verifiable/status
//
// Basic workflow
//
//	1) Resolve the issuer (or holder) DID document with your resolver of choice.
//	2) Call validator.ValidateCredential or validator.ValidatePresentation with the
//	   token and the resolved document.
//	3) Inspect Result.Valid() and the classified errors in Result.Errors.
package vcgo
