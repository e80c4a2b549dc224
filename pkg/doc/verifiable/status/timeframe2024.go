/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/trustframe/vc-go/pkg/doc/verifiable"
)

const (
	// Timeframe2024Type represents a validity window carried by the status entry itself,
	// no bitstring is involved.
	//  VC.Status.Type
	Timeframe2024Type = "RevocationTimeframe2024"

	// StartValidityTimeframe is the start of the validity window.
	//  VC.Status.CustomFields key.
	StartValidityTimeframe = "startValidityTimeframe"

	// EndValidityTimeframe is the end of the validity window.
	//  VC.Status.CustomFields key.
	EndValidityTimeframe = "endValidityTimeframe"
)

// timeframeEntry is the credentialStatus payload of RevocationTimeframe2024.
type timeframeEntry struct {
	Start string `mapstructure:"startValidityTimeframe"`
	End   string `mapstructure:"endValidityTimeframe"`
}

func (c *Checker) checkTimeframe(credential *verifiable.Credential) error {
	entry, err := parseTimeframeEntry(credential.Status)
	if err != nil {
		return err
	}

	start, err := time.Parse(time.RFC3339, entry.Start)
	if err != nil {
		return errors.Wrapf(err, "parse %s", StartValidityTimeframe)
	}

	end, err := time.Parse(time.RFC3339, entry.End)
	if err != nil {
		return errors.Wrapf(err, "parse %s", EndValidityTimeframe)
	}

	if end.Before(start) {
		return errors.New("validity timeframe ends before it starts")
	}

	now := c.now()
	if now.Before(start) || now.After(end) {
		return ErrRevoked
	}

	return nil
}

func parseTimeframeEntry(vcStatus *verifiable.TypedID) (*timeframeEntry, error) {
	for _, field := range []string{StartValidityTimeframe, EndValidityTimeframe} {
		if vcStatus.CustomFields[field] == nil {
			return nil, errors.Errorf("%s field does not exist in vc status", field)
		}
	}

	var entry timeframeEntry

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

	return &entry, nil
}
