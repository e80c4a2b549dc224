/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/base64"
	"io"
	"io/ioutil"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/trustframe/vc-go/pkg/doc/verifiable"
)

const (
	// StatusList2021Type represents the implementation of VC Status List 2021.
	//  VC.Status.Type
	//  Doc: https://w3c-ccg.github.io/vc-status-list-2021/
	StatusList2021Type = "StatusList2021Entry"

	// StatusListCredential stores the link to the status list VC.
	//  VC.Status.CustomFields key.
	StatusListCredential = "statusListCredential"

	// StatusListIndex identifies the bit position of the status value of the VC.
	//  VC.Status.CustomFields key.
	StatusListIndex = "statusListIndex"

	// StatusPurpose for StatusList2021. Only the "revocation" value is supported.
	//  VC.Status.CustomFields key.
	StatusPurpose = "statusPurpose"

	// encodedListField holds the compressed bitstring in the status list VC subject.
	encodedListField = "encodedList"

	revocationPurpose = "revocation"
)

// statusList2021Entry is the credentialStatus payload of StatusList2021Entry.
type statusList2021Entry struct {
	StatusListCredential string `mapstructure:"statusListCredential"`
	StatusListIndex      string `mapstructure:"statusListIndex"`
	StatusPurpose        string `mapstructure:"statusPurpose"`
}

func (c *Checker) checkStatusList(credential *verifiable.Credential) error {
	entry, err := parseStatusList2021Entry(credential.Status)
	if err != nil {
		return err
	}

	idx, err := strconv.Atoi(entry.StatusListIndex)
	if err != nil {
		return errors.Wrap(err, "unable to get statusListIndex")
	}

	if idx < 0 {
		return errors.Errorf("negative %s", StatusListIndex)
	}

	listVC := c.listCredential
	if listVC == nil {
		return errors.New("status list credential is not provided")
	}

	if listVC.ID != "" && listVC.ID != entry.StatusListCredential {
		return errors.Errorf("status list credential %s does not match %s reference %s",
			listVC.ID, StatusListCredential, entry.StatusListCredential)
	}

	if listVC.Issuer.ID != credential.Issuer.ID {
		return errors.New("issuer of the credential does not match status list vc issuer")
	}

	encodedList, err := statusListBitstring(listVC)
	if err != nil {
		return err
	}

	bitString, err := expandStatusList(encodedList)
	if err != nil {
		return errors.Wrap(err, "failed to decode bits")
	}

	bitSet, err := statusListBitAt(bitString, idx)
	if err != nil {
		return err
	}

	if bitSet {
		return ErrRevoked
	}

	return nil
}

func parseStatusList2021Entry(vcStatus *verifiable.TypedID) (*statusList2021Entry, error) {
	for _, field := range []string{StatusListCredential, StatusListIndex, StatusPurpose} {
		if vcStatus.CustomFields[field] == nil {
			return nil, errors.Errorf("%s field does not exist in vc status", field)
		}
	}

	var entry statusList2021Entry

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

	if entry.StatusPurpose != revocationPurpose {
		return nil, errors.Errorf("unsupported %s: %s", StatusPurpose, entry.StatusPurpose)
	}

	return &entry, nil
}

func statusListBitstring(listVC *verifiable.Credential) (string, error) {
	if len(listVC.Subject) == 0 {
		return "", errors.New("no subject in status list credential")
	}

	encodedList, ok := listVC.Subject[0].CustomFields[encodedListField].(string)
	if !ok {
		return "", errors.Errorf("no %s in status list credential subject", encodedListField)
	}

	return encodedList, nil
}

// expandStatusList decodes the base64url encodedList into the raw bitstring.
// The published encoding is GZIP, a zlib stream is tolerated on read.
// The decompressed size is capped to defend against decompression bombs.
func expandStatusList(encodedList string) ([]byte, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(encodedList)
	if err != nil {
		// tolerate padded form
		compressed, err = base64.URLEncoding.DecodeString(encodedList)
		if err != nil {
			return nil, errors.Wrap(err, "decode base64url encodedList")
		}
	}

	var reader io.ReadCloser

	reader, err = gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		reader, err = zlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, errors.Wrap(err, "encodedList is neither gzip nor zlib")
		}
	}

	defer func() {
		_ = reader.Close()
	}()

	decompressed, err := ioutil.ReadAll(io.LimitReader(reader, maxDecodedSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "decompress encodedList")
	}

	if len(decompressed) > maxDecodedSize {
		return nil, errors.Errorf("decompressed encodedList exceeds %d bytes", maxDecodedSize)
	}

	return decompressed, nil
}

// statusListBitAt reads the bit at idx of the bitstring, most significant bit first
// within each byte. An index past the end of the list is an error, not "not revoked".
func statusListBitAt(bitString []byte, idx int) (bool, error) {
	byteIdx := idx / 8
	if byteIdx >= len(bitString) {
		return false, errors.Errorf("%s %d out of range", StatusListIndex, idx)
	}

	mask := byte(0x80) >> (idx % 8)

	return bitString[byteIdx]&mask != 0, nil
}
