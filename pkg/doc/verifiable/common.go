/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/trustframe/vc-go/pkg/doc/sigverifier"
)

// jwtDecoding defines if to decode VC from JWT.
type jwtDecoding int

const (
	// noJwtDecoding not a JWT.
	noJwtDecoding jwtDecoding = iota

	// jwsDecoding indicates to unmarshal from signed token.
	jwsDecoding

	// unsecuredJWTDecoding indicates to unmarshal from unsecured token.
	unsecuredJWTDecoding
)

// PublicKeyFetcher obtains a verification key of the issuer/holder identified by issuerID,
// optionally narrowed to the key with keyID. The key is borrowed for one verification call.
type PublicKeyFetcher func(issuerID, keyID string) (*sigverifier.PublicKey, error)

// Proof defines embedded proof of Verifiable Credential.
type Proof interface{}

// CustomFields is a map of extra fields of struct build when unmarshalling JSON which are not
// mapped to the struct fields.
type CustomFields map[string]interface{}

// TypedID defines a flexible structure with id and name fields and arbitrary extra fields kept
// in CustomFields.
type TypedID struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`

	CustomFields `json:"-"`
}

// MarshalJSON defines custom marshalling of TypedID to JSON.
func (tid TypedID) MarshalJSON() ([]byte, error) {
	type Alias TypedID

	alias := Alias(tid)

	data, err := marshalWithCustomFields(alias, tid.CustomFields)
	if err != nil {
		return nil, fmt.Errorf("marshal TypedID: %w", err)
	}

	return data, nil
}

// UnmarshalJSON defines custom unmarshalling of TypedID from JSON.
func (tid *TypedID) UnmarshalJSON(data []byte) error {
	type Alias TypedID

	alias := (*Alias)(tid)

	tid.CustomFields = make(CustomFields)

	err := unmarshalWithCustomFields(data, alias, tid.CustomFields)
	if err != nil {
		return fmt.Errorf("unmarshal TypedID: %w", err)
	}

	return nil
}

func newTypedID(v interface{}) (TypedID, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return TypedID{}, err
	}

	var tid TypedID
	err = json.Unmarshal(bytes, &tid)

	return tid, err
}

func stringSlice(values []interface{}) ([]string, error) {
	s := make([]string, len(values))

	for i := range values {
		t, valid := values[i].(string)
		if !valid {
			return nil, errors.New("array element is not a string")
		}

		s[i] = t
	}

	return s, nil
}

// decodeType decodes raw type(s).
//
// type can be defined as a single string value or array of strings.
func decodeType(t interface{}) ([]string, error) {
	switch rType := t.(type) {
	case string:
		return []string{rType}, nil
	case []interface{}:
		types, err := stringSlice(rType)
		if err != nil {
			return nil, fmt.Errorf("vc types: %w", err)
		}

		return types, nil
	default:
		return nil, errors.New("credential type of unknown structure")
	}
}

// decodeContext decodes raw context(s).
//
// context can be defined as a single string value or array;
// at the second case, the array can be a mix of string and object types
// (objects can express context information); object context are
// defined at the tail of the array.
func decodeContext(c interface{}) ([]string, []interface{}, error) {
	switch rContext := c.(type) {
	case string:
		return []string{rContext}, nil, nil
	case []interface{}:
		s := make([]string, 0)

		for i := range rContext {
			c, valid := rContext[i].(string)
			if !valid {
				// the remaining contexts are of custom type
				return s, rContext[i:], nil
			}

			s = append(s, c)
		}
		// no contexts of custom type, just string contexts found
		return s, nil, nil
	default:
		return nil, nil, errors.New("credential context of unknown type")
	}
}

func safeStringValue(v interface{}) string {
	if v == nil {
		return ""
	}

	s, _ := v.(string)

	return s
}

func proofsToRaw(proofs []Proof) ([]byte, error) {
	switch len(proofs) {
	case 0:
		return nil, nil
	case 1:
		return json.Marshal(proofs[0])
	default:
		return json.Marshal(proofs)
	}
}

func parseProof(proofBytes json.RawMessage) ([]Proof, error) {
	if len(proofBytes) == 0 {
		return nil, nil
	}

	var singleProof Proof

	err := json.Unmarshal(proofBytes, &singleProof)
	if err == nil {
		return []Proof{singleProof}, nil
	}

	var composedProof []Proof

	err = json.Unmarshal(proofBytes, &composedProof)
	if err == nil {
		return composedProof, nil
	}

	return nil, err
}

func describeSchemaValidationError(result *gojsonschema.Result, what string) string {
	errMsg := what + " is not valid:\n"
	for _, desc := range result.Errors() {
		errMsg += fmt.Sprintf("- %s\n", desc)
	}

	return errMsg
}
