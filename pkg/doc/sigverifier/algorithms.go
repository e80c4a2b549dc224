/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sigverifier

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rsa"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/ed25519"

	// SHA-2 family registration for crypto.Hash.New.
	_ "crypto/sha256"
	_ "crypto/sha512"
)

func builtinVerifiers() map[string]VerifyFunc {
	return map[string]VerifyFunc{
		"EdDSA": VerifyEdDSA,

		"ES256": ecdsaVerifier(elliptic256, crypto.SHA256),
		"ES384": ecdsaVerifier(elliptic384, crypto.SHA384),
		"ES512": ecdsaVerifier(elliptic521, crypto.SHA512),

		"RS256": rsaPKCS1Verifier(crypto.SHA256),
		"RS384": rsaPKCS1Verifier(crypto.SHA384),
		"RS512": rsaPKCS1Verifier(crypto.SHA512),

		"PS256": rsaPSSVerifier(crypto.SHA256),
		"PS384": rsaPSSVerifier(crypto.SHA384),
		"PS512": rsaPSSVerifier(crypto.SHA512),

		"HS256": hmacVerifier(crypto.SHA256),
		"HS384": hmacVerifier(crypto.SHA384),
		"HS512": hmacVerifier(crypto.SHA512),
	}
}

const (
	elliptic256 = 256
	elliptic384 = 384
	elliptic521 = 521
)

// VerifyEdDSA verifies an EdDSA signature.
func VerifyEdDSA(key *PublicKey, signingInput, signature []byte) error {
	pubKeyEdDSA, err := edDSAKey(key)
	if err != nil {
		return err
	}

	if ok := ed25519.Verify(pubKeyEdDSA, signingInput, signature); !ok {
		return errors.New("signature doesn't match")
	}

	return nil
}

func edDSAKey(key *PublicKey) (ed25519.PublicKey, error) {
	if key.Key != nil {
		switch k := key.Key.(type) {
		case ed25519.PublicKey:
			return validEdDSAKey(k)
		case []byte:
			return validEdDSAKey(k)
		default:
			return nil, errors.New("not []byte or ed25519.PublicKey public key")
		}
	}

	return validEdDSAKey(key.Value)
}

func validEdDSAKey(pubKey []byte) (ed25519.PublicKey, error) {
	if l := len(pubKey); l != ed25519.PublicKeySize {
		return nil, errors.New("bad ed25519 public key length")
	}

	return pubKey, nil
}

func ecdsaVerifier(curveBits int, hash crypto.Hash) VerifyFunc {
	return func(key *PublicKey, signingInput, signature []byte) error {
		pubKeyECDSA, ok := key.Key.(*ecdsa.PublicKey)
		if !ok {
			return errors.New("not *ecdsa.PublicKey public key")
		}

		if pubKeyECDSA.Curve.Params().BitSize != curveBits {
			return fmt.Errorf("ecdsa key curve size %d does not match algorithm", pubKeyECDSA.Curve.Params().BitSize)
		}

		// signature is raw R || S of equal halves (https://tools.ietf.org/html/rfc7518#section-3.4)
		keyBytes := (curveBits + 7) / 8

		if len(signature) != 2*keyBytes {
			return errors.New("ecdsa signature of invalid length")
		}

		hasher := hash.New()

		_, err := hasher.Write(signingInput)
		if err != nil {
			return err
		}

		hashed := hasher.Sum(nil)

		r := new(big.Int).SetBytes(signature[:keyBytes])
		s := new(big.Int).SetBytes(signature[keyBytes:])

		if !ecdsa.Verify(pubKeyECDSA, hashed, r, s) {
			return errors.New("signature doesn't match")
		}

		return nil
	}
}

func rsaPKCS1Verifier(hash crypto.Hash) VerifyFunc {
	return func(key *PublicKey, signingInput, signature []byte) error {
		pubKeyRSA, ok := key.Key.(*rsa.PublicKey)
		if !ok {
			return errors.New("not *rsa.PublicKey public key")
		}

		hasher := hash.New()

		_, err := hasher.Write(signingInput)
		if err != nil {
			return err
		}

		hashed := hasher.Sum(nil)

		return rsa.VerifyPKCS1v15(pubKeyRSA, hash, hashed, signature)
	}
}

func rsaPSSVerifier(hash crypto.Hash) VerifyFunc {
	return func(key *PublicKey, signingInput, signature []byte) error {
		pubKeyRSA, ok := key.Key.(*rsa.PublicKey)
		if !ok {
			return errors.New("not *rsa.PublicKey public key")
		}

		hasher := hash.New()

		_, err := hasher.Write(signingInput)
		if err != nil {
			return err
		}

		hashed := hasher.Sum(nil)

		return rsa.VerifyPSS(pubKeyRSA, hash, hashed, signature, nil)
	}
}

func hmacVerifier(hash crypto.Hash) VerifyFunc {
	return func(key *PublicKey, signingInput, signature []byte) error {
		if len(key.Value) == 0 {
			return errors.New("hmac secret is not defined")
		}

		mac := hmac.New(hash.New, key.Value)

		_, err := mac.Write(signingInput)
		if err != nil {
			return err
		}

		if !hmac.Equal(signature, mac.Sum(nil)) {
			return errors.New("signature doesn't match")
		}

		return nil
	}
}
