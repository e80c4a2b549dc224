/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	jwsPartsCount    = 3
	jwsHeaderPart    = 0
	jwsPayloadPart   = 1
	jwsSignaturePart = 2
)

// Signer defines the JWS signer.
type Signer interface {
	// Sign signs.
	Sign(data []byte) ([]byte, error)

	// Headers provides JOSE headers of the signer.
	Headers() Headers
}

// SignatureVerifier makes verification of a JSON Web Signature.
type SignatureVerifier interface {
	// Verify verifies signature against signing input.
	Verify(joseHeaders Headers, payload, signingInput, signature []byte) error
}

// SignatureVerifierFunc is a function wrapper for SignatureVerifier.
type SignatureVerifierFunc func(joseHeaders Headers, payload, signingInput, signature []byte) error

// Verify verifies signature.
func (s SignatureVerifierFunc) Verify(joseHeaders Headers, payload, signingInput, signature []byte) error {
	return s(joseHeaders, payload, signingInput, signature)
}

// DefaultSigningInputVerifier is a SignatureVerifier that generates the signing input
// from the given headers and payload, instead of using the signing input parameter.
type DefaultSigningInputVerifier func(joseHeaders Headers, payload, signingInput, signature []byte) error

// Verify verifies signature.
func (s DefaultSigningInputVerifier) Verify(joseHeaders Headers, payload, _, signature []byte) error {
	signingInputData, err := signingInput(joseHeaders, payload)
	if err != nil {
		return err
	}

	return s(joseHeaders, payload, signingInputData, signature)
}

// CompositeAlgSigVerifier defines composite signature verifier based on the algorithm
// taken from JOSE header alg.
type CompositeAlgSigVerifier struct {
	verifierByAlg map[string]SignatureVerifier
}

// AlgSignatureVerifier defines verifier for particular signature algorithm.
type AlgSignatureVerifier struct {
	Alg      string
	Verifier SignatureVerifier
}

// NewCompositeAlgSigVerifier creates a new CompositeAlgSigVerifier.
func NewCompositeAlgSigVerifier(v AlgSignatureVerifier, vOther ...AlgSignatureVerifier) *CompositeAlgSigVerifier {
	verifierByAlg := make(map[string]SignatureVerifier, 1+len(vOther))
	verifierByAlg[v.Alg] = v.Verifier

	for _, v := range vOther {
		verifierByAlg[v.Alg] = v.Verifier
	}

	return &CompositeAlgSigVerifier{
		verifierByAlg: verifierByAlg,
	}
}

// Verify verifies signature.
func (v *CompositeAlgSigVerifier) Verify(joseHeaders Headers, payload, signingInput, signature []byte) error {
	alg, ok := joseHeaders.Algorithm()
	if !ok {
		return errors.New("'alg' JOSE header is not present")
	}

	verifier, ok := v.verifierByAlg[alg]
	if !ok {
		return fmt.Errorf("no verifier found for %s algorithm", alg)
	}

	return verifier.Verify(joseHeaders, payload, signingInput, signature)
}

// JSONWebSignature defines JSON Web Signature (https://tools.ietf.org/html/rfc7515)
type JSONWebSignature struct {
	ProtectedHeaders   Headers
	UnprotectedHeaders Headers
	Payload            []byte

	signature   []byte
	joseHeaders Headers

	// raw base64url segments of a parsed JWS. The signature covers exactly these
	// bytes, so compact serialization reuses them instead of re-deriving the
	// encoding from decoded JSON.
	rawProtected string
	rawPayload   string
}

// Signature returns a copy of JWS signature.
func (s *JSONWebSignature) Signature() []byte {
	if s.signature == nil {
		return nil
	}

	sCopy := make([]byte, len(s.signature))
	copy(sCopy, s.signature)

	return sCopy
}

// NewJWS creates JSON Web Signature.
func NewJWS(protectedHeaders, unprotectedHeaders Headers, payload []byte, signer Signer) (*JSONWebSignature, error) {
	headers := mergeHeaders(protectedHeaders, signer.Headers())
	jws := &JSONWebSignature{
		ProtectedHeaders:   headers,
		UnprotectedHeaders: unprotectedHeaders,
		Payload:            payload,
		joseHeaders:        headers,
	}

	signature, err := sign(jws, signer)
	if err != nil {
		return nil, fmt.Errorf("sign JWS: %w", err)
	}

	jws.signature = signature

	return jws, nil
}

// SerializeCompact makes JWS compact serialization (https://tools.ietf.org/html/rfc7515#section-7.1).
// For a JWS built by ParseJWS, the original header and payload segments are re-emitted byte-for-byte.
func (s *JSONWebSignature) SerializeCompact(detached bool) (string, error) {
	b64Headers := s.rawProtected

	if b64Headers == "" {
		byteHeaders, err := json.Marshal(s.joseHeaders)
		if err != nil {
			return "", fmt.Errorf("marshal JOSE headers: %w", err)
		}

		b64Headers = base64.RawURLEncoding.EncodeToString(byteHeaders)
	}

	b64Payload := ""
	if !detached {
		var err error

		b64Payload, err = s.base64Payload()
		if err != nil {
			return "", err
		}
	}

	b64Signature := base64.RawURLEncoding.EncodeToString(s.signature)

	return fmt.Sprintf("%s.%s.%s",
		b64Headers,
		b64Payload,
		b64Signature), nil
}

func (s *JSONWebSignature) base64Payload() (string, error) {
	if s.rawPayload != "" {
		return s.rawPayload, nil
	}

	b64, err := isPayloadB64(s.joseHeaders)
	if err != nil {
		return "", err
	}

	if b64 {
		return base64.RawURLEncoding.EncodeToString(s.Payload), nil
	}

	return string(s.Payload), nil
}

func mergeHeaders(h1, h2 Headers) Headers {
	h := make(Headers, len(h1)+len(h2))

	for k, v := range h2 {
		h[k] = v
	}

	for k, v := range h1 {
		h[k] = v
	}

	return h
}

func sign(jws *JSONWebSignature, signer Signer) ([]byte, error) {
	err := checkJWSHeaders(jws.joseHeaders)
	if err != nil {
		return nil, err
	}

	sigInput, err := signingInput(jws.joseHeaders, jws.Payload)
	if err != nil {
		return nil, err
	}

	signature, err := signer.Sign(sigInput)
	if err != nil {
		return nil, fmt.Errorf("sign JWS verification data: %w", err)
	}

	return signature, nil
}

// jwsParseOpts holds options for the JWS Parser.
type jwsParseOpts struct {
	detachedPayload []byte
}

// JWSParseOpt is the JWS Parser option.
type JWSParseOpt func(opts *jwsParseOpts)

// WithJWSDetachedPayload option is for definition of JWS detached payload.
func WithJWSDetachedPayload(payload []byte) JWSParseOpt {
	return func(opts *jwsParseOpts) {
		opts.detachedPayload = payload
	}
}

// ParseJWS parses serialized JWS. Currently only JWS Compact Serialization parsing is supported.
func ParseJWS(jws string, verifier SignatureVerifier, opts ...JWSParseOpt) (*JSONWebSignature, error) {
	pOpts := &jwsParseOpts{}

	for _, opt := range opts {
		opt(pOpts)
	}

	if strings.HasPrefix(jws, "{") {
		// TODO support JWS JSON serialization format
		return nil, errors.New("JWS JSON serialization is not supported")
	}

	return parseCompactJWS(jws, verifier, pOpts)
}

// IsCompactJWS checks weather input is a compact JWS (based on https://tools.ietf.org/html/rfc7516#section-9)
func IsCompactJWS(s string) bool {
	parts := strings.Split(s, ".")

	return len(parts) == jwsPartsCount
}

func parseCompactJWS(jws string, verifier SignatureVerifier, opts *jwsParseOpts) (*JSONWebSignature, error) {
	parts := strings.Split(jws, ".")
	if len(parts) != jwsPartsCount {
		return nil, errors.New("invalid JWS compact format")
	}

	joseHeaders, err := parseCompactJWSHeaders(parts[jwsHeaderPart])
	if err != nil {
		return nil, err
	}

	rawPayload := parts[jwsPayloadPart]

	payload := opts.detachedPayload
	if payload == nil {
		payload, err = base64.RawURLEncoding.DecodeString(rawPayload)
		if err != nil {
			return nil, fmt.Errorf("decode base64 payload: %w", err)
		}
	} else {
		// restore the payload segment the signature was computed over
		b64, b64Err := isPayloadB64(joseHeaders)
		if b64Err != nil {
			return nil, b64Err
		}

		if b64 {
			rawPayload = base64.RawURLEncoding.EncodeToString(payload)
		} else {
			rawPayload = string(payload)
		}
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[jwsSignaturePart])
	if err != nil {
		return nil, fmt.Errorf("decode base64 signature: %w", err)
	}

	// The signing input is exactly the undecoded header and payload segments joined
	// by '.', never a re-derived encoding.
	sigInput := []byte(fmt.Sprintf("%s.%s", parts[jwsHeaderPart], rawPayload))

	err = verifier.Verify(joseHeaders, payload, sigInput, signature)
	if err != nil {
		return nil, err
	}

	return &JSONWebSignature{
		ProtectedHeaders: joseHeaders,
		Payload:          payload,
		signature:        signature,
		joseHeaders:      joseHeaders,
		rawProtected:     parts[jwsHeaderPart],
		rawPayload:       rawPayload,
	}, nil
}

func parseCompactJWSHeaders(b64Header string) (Headers, error) {
	headerBytes, err := base64.RawURLEncoding.DecodeString(b64Header)
	if err != nil {
		return nil, fmt.Errorf("decode base64 header: %w", err)
	}

	var joseHeaders Headers

	err = json.Unmarshal(headerBytes, &joseHeaders)
	if err != nil {
		return nil, fmt.Errorf("unmarshal JSON headers: %w", err)
	}

	err = checkJWSHeaders(joseHeaders)
	if err != nil {
		return nil, err
	}

	return joseHeaders, nil
}

func checkJWSHeaders(headers Headers) error {
	if _, ok := headers[HeaderAlgorithm]; !ok {
		return errors.New("alg JWS header is not defined")
	}

	return nil
}

func signingInput(headers Headers, payload []byte) ([]byte, error) {
	headersBytes, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("serialize JWS headers: %w", err)
	}

	hBase64 := true

	if b64, ok := headers[HeaderB64Payload]; ok {
		if hBase64, ok = b64.(bool); !ok {
			return nil, errors.New("invalid b64 header")
		}
	}

	headersStr := base64.RawURLEncoding.EncodeToString(headersBytes)

	var payloadStr string

	if hBase64 {
		payloadStr = base64.RawURLEncoding.EncodeToString(payload)
	} else {
		payloadStr = string(payload)
	}

	return []byte(fmt.Sprintf("%s.%s", headersStr, payloadStr)), nil
}

func isPayloadB64(headers Headers) (bool, error) {
	b64Payload := true

	if b64, ok := headers[HeaderB64Payload]; ok {
		var isBool bool

		if b64Payload, isBool = b64.(bool); !isBool {
			return false, errors.New("invalid b64 header")
		}
	}

	return b64Payload, nil
}
