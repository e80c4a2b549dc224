/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package jose

// IANA registered JOSE headers (https://tools.ietf.org/html/rfc7515#section-4.1)
const (
	// HeaderAlgorithm identifies the cryptographic algorithm used to secure the JWS.
	HeaderAlgorithm = "alg" // string

	// HeaderKeyID identifies the key used to secure the JWS.
	HeaderKeyID = "kid" // string

	// HeaderType identifies the media type of the complete JWS.
	HeaderType = "typ" // string

	// HeaderContentType identifies the media type of the secured content (the payload).
	HeaderContentType = "cty" // string

	// HeaderCritical indicates extension header parameters that must be understood and processed.
	HeaderCritical = "crit" // array

	// HeaderB64Payload determines whether the payload is represented in base64url-encoded form.
	HeaderB64Payload = "b64" // bool
)

// Headers represents JOSE headers.
type Headers map[string]interface{}

// KeyID gets Key ID from JOSE headers.
func (h Headers) KeyID() (string, bool) {
	return h.stringValue(HeaderKeyID)
}

// Algorithm gets signature algorithm from JOSE headers.
func (h Headers) Algorithm() (string, bool) {
	return h.stringValue(HeaderAlgorithm)
}

// Type gets content type from JOSE headers.
func (h Headers) Type() (string, bool) {
	return h.stringValue(HeaderType)
}

// ContentType gets the payload content type from JOSE headers.
func (h Headers) ContentType() (string, bool) {
	return h.stringValue(HeaderContentType)
}

// Critical gets the "crit" extension header names from JOSE headers.
func (h Headers) Critical() ([]string, bool) {
	v, ok := h[HeaderCritical]
	if !ok {
		return nil, false
	}

	elems, ok := v.([]interface{})
	if !ok || len(elems) == 0 {
		return nil, false
	}

	names := make([]string, len(elems))

	for i, e := range elems {
		name, ok := e.(string)
		if !ok {
			return nil, false
		}

		names[i] = name
	}

	return names, true
}

func (h Headers) stringValue(key string) (string, bool) {
	raw, ok := h[key]
	if !ok {
		return "", false
	}

	str, ok := raw.(string)

	return str, ok
}
