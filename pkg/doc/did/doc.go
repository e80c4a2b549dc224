/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package did provides a read-only model of resolved identifier documents. Resolution
// itself (network or storage lookup) is an external collaborator; the validation engine
// only consumes documents the caller already holds.
package did

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	gojose "github.com/go-jose/go-jose/v3"
	"github.com/multiformats/go-multibase"

	"github.com/trustframe/vc-go/pkg/doc/sigverifier"
)

// Verification method types with a known key encoding.
const (
	ed25519VerificationKey2018 = "Ed25519VerificationKey2018"
	ed25519VerificationKey2020 = "Ed25519VerificationKey2020"
	jsonWebKey2020             = "JsonWebKey2020"
)

// multicodec prefix for ed25519 public keys in publicKeyMultibase values.
var ed25519Multicodec = []byte{0xed, 0x01} //nolint:gochecknoglobals

// DID is parsed according to the generic syntax: https://w3c.github.io/did-core/#generic-did-syntax
type DID struct {
	Scheme           string // Scheme is always "did"
	Method           string // Method is the specific DID method
	MethodSpecificID string // MethodSpecificID is the unique ID computed or assigned by the DID method
}

// String returns a string representation of this DID.
func (d *DID) String() string {
	return fmt.Sprintf("%s:%s:%s", d.Scheme, d.Method, d.MethodSpecificID)
}

// Parse parses the string according to the generic DID syntax.
// See https://w3c.github.io/did-core/#generic-did-syntax.
func Parse(did string) (*DID, error) {
	const idchar = `a-zA-Z0-9-_\.`
	regex := fmt.Sprintf(`^did:[a-z0-9]+:(:+|[:%s]+)*[%s]+$`, idchar, idchar)

	r, err := regexp.Compile(regex)
	if err != nil {
		return nil, fmt.Errorf("failed to compile regex=%s (this should not have happened!). %w", regex, err)
	}

	if !r.MatchString(did) {
		return nil, fmt.Errorf(
			"invalid did: %s. Make sure it conforms to the generic DID syntax: https://w3c.github.io/did-core/#generic-did-syntax", //nolint:lll
			did)
	}

	parts := strings.SplitN(did, ":", 3)

	return &DID{
		Scheme:           "did",
		Method:           parts[1],
		MethodSpecificID: parts[2],
	}, nil
}

// Doc DID Document definition.
type Doc struct {
	Context            []string
	ID                 string
	VerificationMethod []VerificationMethod
	Service            []Service
}

// VerificationMethod is a public key expressed in one of the supported encodings.
type VerificationMethod struct {
	ID         string
	Type       string
	Controller string

	PublicKeyBase58    string
	PublicKeyMultibase string
	PublicKeyJWK       *gojose.JSONWebKey
}

// Service DID doc service.
type Service struct {
	ID              string
	Type            string
	ServiceEndpoint string
	Properties      map[string]interface{}
}

type rawDoc struct {
	Context            interface{}              `json:"@context,omitempty"`
	ID                 string                   `json:"id,omitempty"`
	VerificationMethod []rawVerificationMethod  `json:"verificationMethod,omitempty"`
	Service            []map[string]interface{} `json:"service,omitempty"`
}

type rawVerificationMethod struct {
	ID                 string          `json:"id,omitempty"`
	Type               string          `json:"type,omitempty"`
	Controller         string          `json:"controller,omitempty"`
	PublicKeyBase58    string          `json:"publicKeyBase58,omitempty"`
	PublicKeyMultibase string          `json:"publicKeyMultibase,omitempty"`
	PublicKeyJWK       json.RawMessage `json:"publicKeyJwk,omitempty"`
}

// ParseDocument creates an instance of DID document by reading a JSON document from bytes.
func ParseDocument(data []byte) (*Doc, error) {
	raw := &rawDoc{}

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("JSON unmarshalling of did doc bytes failed: %w", err)
	}

	if raw.ID == "" {
		return nil, errors.New("document id is not defined")
	}

	methods, err := populateVerificationMethods(raw.VerificationMethod)
	if err != nil {
		return nil, fmt.Errorf("populate verification methods failed: %w", err)
	}

	return &Doc{
		Context:            parseContext(raw.Context),
		ID:                 raw.ID,
		VerificationMethod: methods,
		Service:            populateServices(raw.Service),
	}, nil
}

// JSONBytes converts document data model to JSON bytes.
func (doc *Doc) JSONBytes() ([]byte, error) {
	raw := &rawDoc{
		Context: doc.Context,
		ID:      doc.ID,
	}

	for i := range doc.VerificationMethod {
		vm := &doc.VerificationMethod[i]

		rawVM := rawVerificationMethod{
			ID:                 vm.ID,
			Type:               vm.Type,
			Controller:         vm.Controller,
			PublicKeyBase58:    vm.PublicKeyBase58,
			PublicKeyMultibase: vm.PublicKeyMultibase,
		}

		if vm.PublicKeyJWK != nil {
			jwkBytes, err := vm.PublicKeyJWK.MarshalJSON()
			if err != nil {
				return nil, fmt.Errorf("marshal publicKeyJwk: %w", err)
			}

			rawVM.PublicKeyJWK = jwkBytes
		}

		raw.VerificationMethod = append(raw.VerificationMethod, rawVM)
	}

	for i := range doc.Service {
		s := doc.Service[i]

		rawService := map[string]interface{}{}
		for k, v := range s.Properties {
			rawService[k] = v
		}

		rawService["id"] = s.ID
		rawService["type"] = s.Type

		if s.ServiceEndpoint != "" {
			rawService["serviceEndpoint"] = s.ServiceEndpoint
		}

		raw.Service = append(raw.Service, rawService)
	}

	bytes, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("JSON marshalling of did doc failed: %w", err)
	}

	return bytes, nil
}

// VerificationMethodByID looks up a verification method by its id. A key id which is a
// relative fragment ("#key-1") or a fragment of the document id is matched against the
// method ids the same way.
func (doc *Doc) VerificationMethodByID(keyID string) (*VerificationMethod, bool) {
	for i := range doc.VerificationMethod {
		vm := &doc.VerificationMethod[i]

		if vm.ID == keyID || vm.ID == doc.ID+keyID ||
			strings.TrimPrefix(vm.ID, doc.ID) == keyID {
			return vm, true
		}
	}

	return nil, false
}

// ServiceByID looks up a service entry by its id, matching relative fragments like
// VerificationMethodByID.
func (doc *Doc) ServiceByID(serviceID string) (*Service, bool) {
	for i := range doc.Service {
		s := &doc.Service[i]

		if s.ID == serviceID || s.ID == doc.ID+serviceID ||
			strings.TrimPrefix(s.ID, doc.ID) == serviceID {
			return s, true
		}
	}

	return nil, false
}

// ServiceByType looks up the first service entry of the given type.
func (doc *Doc) ServiceByType(serviceType string) (*Service, bool) {
	for i := range doc.Service {
		if doc.Service[i].Type == serviceType {
			return &doc.Service[i], true
		}
	}

	return nil, false
}

// VerificationKey decodes the verification method key material into the form consumed
// by signature verification. The key is borrowed for the duration of one verification
// call and owns no document state.
func (vm *VerificationMethod) VerificationKey() (*sigverifier.PublicKey, error) {
	switch vm.Type {
	case ed25519VerificationKey2018:
		if vm.PublicKeyBase58 == "" {
			return nil, errors.New("publicKeyBase58 is not defined")
		}

		return &sigverifier.PublicKey{
			Type:  vm.Type,
			KeyID: vm.ID,
			Alg:   "EdDSA",
			Value: base58.Decode(vm.PublicKeyBase58),
		}, nil

	case ed25519VerificationKey2020:
		keyBytes, err := decodeMultibaseKey(vm.PublicKeyMultibase)
		if err != nil {
			return nil, err
		}

		return &sigverifier.PublicKey{
			Type:  vm.Type,
			KeyID: vm.ID,
			Alg:   "EdDSA",
			Value: keyBytes,
		}, nil

	case jsonWebKey2020:
		if vm.PublicKeyJWK == nil {
			return nil, errors.New("publicKeyJwk is not defined")
		}

		return &sigverifier.PublicKey{
			Type:  vm.Type,
			KeyID: vm.ID,
			Alg:   vm.PublicKeyJWK.Algorithm,
			Key:   vm.PublicKeyJWK.Key,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported verification method type %q", vm.Type)
	}
}

func decodeMultibaseKey(publicKeyMultibase string) ([]byte, error) {
	if publicKeyMultibase == "" {
		return nil, errors.New("publicKeyMultibase is not defined")
	}

	_, keyBytes, err := multibase.Decode(publicKeyMultibase)
	if err != nil {
		return nil, fmt.Errorf("decode publicKeyMultibase: %w", err)
	}

	if len(keyBytes) > len(ed25519Multicodec) &&
		keyBytes[0] == ed25519Multicodec[0] && keyBytes[1] == ed25519Multicodec[1] {
		keyBytes = keyBytes[len(ed25519Multicodec):]
	}

	return keyBytes, nil
}

func populateVerificationMethods(rawMethods []rawVerificationMethod) ([]VerificationMethod, error) {
	var methods []VerificationMethod

	for i := range rawMethods {
		raw := rawMethods[i]

		vm := VerificationMethod{
			ID:                 raw.ID,
			Type:               raw.Type,
			Controller:         raw.Controller,
			PublicKeyBase58:    raw.PublicKeyBase58,
			PublicKeyMultibase: raw.PublicKeyMultibase,
		}

		if len(raw.PublicKeyJWK) > 0 {
			jwk := &gojose.JSONWebKey{}

			err := jwk.UnmarshalJSON(raw.PublicKeyJWK)
			if err != nil {
				return nil, fmt.Errorf("unmarshal publicKeyJwk of %s: %w", raw.ID, err)
			}

			vm.PublicKeyJWK = jwk
		}

		methods = append(methods, vm)
	}

	return methods, nil
}

func populateServices(rawServices []map[string]interface{}) []Service {
	var services []Service

	for _, rawService := range rawServices {
		s := Service{Properties: map[string]interface{}{}}

		for k, v := range rawService {
			switch k {
			case "id":
				s.ID, _ = v.(string)
			case "type":
				s.Type, _ = v.(string)
			case "serviceEndpoint":
				if endpoint, ok := v.(string); ok {
					s.ServiceEndpoint = endpoint
				} else {
					s.Properties[k] = v
				}
			default:
				s.Properties[k] = v
			}
		}

		services = append(services, s)
	}

	return services
}

func parseContext(context interface{}) []string {
	switch ctx := context.(type) {
	case string:
		return []string{ctx}
	case []interface{}:
		var contexts []string

		for _, c := range ctx {
			if s, ok := c.(string); ok {
				contexts = append(contexts, s)
			}
		}

		return contexts
	default:
		return nil
	}
}
