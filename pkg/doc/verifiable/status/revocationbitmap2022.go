/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"encoding/base64"
	"io"
	"io/ioutil"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/trustframe/vc-go/pkg/doc/did"
	"github.com/trustframe/vc-go/pkg/doc/verifiable"
)

const (
	// RevocationBitmap2022Type represents a revocation bitmap embedded into a service
	// of the issuer DID document.
	//  VC.Status.Type
	RevocationBitmap2022Type = "RevocationBitmap2022"

	// RevocationBitmapIndex identifies the bit position of the status value of the VC.
	//  VC.Status.CustomFields key.
	RevocationBitmapIndex = "revocationBitmapIndex"
)

// revocationBitmapEntry is the credentialStatus payload of RevocationBitmap2022.
type revocationBitmapEntry struct {
	Index int `mapstructure:"revocationBitmapIndex"`
}

func (c *Checker) checkRevocationBitmap(credential *verifiable.Credential) error {
	entry, err := parseRevocationBitmapEntry(credential.Status)
	if err != nil {
		return err
	}

	if c.issuerDoc == nil {
		return errors.New("issuer DID document is not provided")
	}

	service, err := findRevocationBitmapService(c.issuerDoc, credential.Status.ID)
	if err != nil {
		return err
	}

	bitmap, err := expandRevocationBitmap(service.ServiceEndpoint)
	if err != nil {
		return errors.Wrap(err, "expand revocation bitmap")
	}

	revoked, err := revocationBitmapBitAt(bitmap, entry.Index)
	if err != nil {
		return err
	}

	if revoked {
		return ErrRevoked
	}

	return nil
}

func parseRevocationBitmapEntry(vcStatus *verifiable.TypedID) (*revocationBitmapEntry, error) {
	if vcStatus.CustomFields[RevocationBitmapIndex] == nil {
		return nil, errors.Errorf("%s field does not exist in vc status", RevocationBitmapIndex)
	}

	var entry revocationBitmapEntry

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &entry,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(map[string]interface{}(vcStatus.CustomFields)); err != nil {
		return nil, errors.Wrap(err, "decode vc status")
	}

	if entry.Index < 0 {
		return nil, errors.Errorf("negative %s", RevocationBitmapIndex)
	}

	return &entry, nil
}

// findRevocationBitmapService locates the bitmap service in the issuer document.
// The status ID references the service, a bare document falls back to the first
// service of the bitmap type.
func findRevocationBitmapService(issuerDoc *did.Doc, statusID string) (*did.Service, error) {
	if statusID != "" {
		if service, ok := issuerDoc.ServiceByID(statusID); ok {
			if service.Type != RevocationBitmap2022Type {
				return nil, errors.Errorf("service %s is not of type %s", statusID, RevocationBitmap2022Type)
			}

			return service, nil
		}
	}

	if service, ok := issuerDoc.ServiceByType(RevocationBitmap2022Type); ok {
		return service, nil
	}

	return nil, errors.Errorf("no %s service in issuer DID document", RevocationBitmap2022Type)
}

// expandRevocationBitmap decodes the service endpoint into the raw bitstring.
// The endpoint carries the zlib-compressed bitstring in base64url encoding,
// either bare or wrapped into a data URL.
func expandRevocationBitmap(endpoint string) ([]byte, error) {
	encoded := endpoint

	if strings.HasPrefix(encoded, "data:") {
		comma := strings.IndexByte(encoded, ',')
		if comma < 0 {
			return nil, errors.New("malformed data URL in service endpoint")
		}

		encoded = encoded[comma+1:]
	}

	compressed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		// tolerate padded form
		compressed, err = base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			return nil, errors.Wrap(err, "decode base64url bitstring")
		}
	}

	return zlibDecompress(compressed)
}

// zlibDecompress inflates a zlib stream, falling back to a raw DEFLATE stream.
// The decompressed size is capped to defend against decompression bombs.
func zlibDecompress(compressed []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		reader = flate.NewReader(bytes.NewReader(compressed))
	}

	defer func() {
		_ = reader.Close()
	}()

	decompressed, err := ioutil.ReadAll(io.LimitReader(reader, maxDecodedSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "inflate bitstring")
	}

	if len(decompressed) > maxDecodedSize {
		return nil, errors.Errorf("decompressed bitstring exceeds %d bytes", maxDecodedSize)
	}

	return decompressed, nil
}

// revocationBitmapBitAt reads the bit at idx of the bitmap, most significant bit first
// within each byte. An index past the end of the bitmap is an error, it signals a
// mismatch between the list size at issuance and at validation.
func revocationBitmapBitAt(bitmap []byte, idx int) (bool, error) {
	byteIdx := idx / 8
	if byteIdx >= len(bitmap) {
		return false, errors.Errorf("%s %d out of range", RevocationBitmapIndex, idx)
	}

	mask := byte(0x80) >> (idx % 8)

	return bitmap[byteIdx]&mask != 0, nil
}
