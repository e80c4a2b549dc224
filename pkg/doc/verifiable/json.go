/*
Copyright Trustframe Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verifiable

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// marshalWithCustomFields marshals value merged with custom fields defined in the map into JSON bytes.
func marshalWithCustomFields(v interface{}, cf map[string]interface{}) ([]byte, error) {
	// Merge value and custom fields into the joint map.
	vm, err := mergeCustomFields(v, cf)
	if err != nil {
		return nil, err
	}

	return json.Marshal(vm)
}

// unmarshalWithCustomFields unmarshals JSON into value v and puts all JSON fields which do not belong to value
// into custom fields map cf.
func unmarshalWithCustomFields(data []byte, v interface{}, cf map[string]interface{}) error {
	err := json.Unmarshal(data, v)
	if err != nil {
		return err
	}

	allMap := make(map[string]interface{})

	err = json.Unmarshal(data, &allMap)
	if err != nil {
		return err
	}

	vData, err := json.Marshal(v)
	if err != nil {
		return err
	}

	vMap := make(map[string]interface{})

	err = json.Unmarshal(vData, &vMap)
	if err != nil {
		return err
	}

	for k, v := range allMap {
		if _, exists := vMap[k]; !exists {
			cf[k] = v
		}
	}

	return nil
}

// mergeCustomFields converts value to the JSON-like map and merges it with custom fields map cf.
func mergeCustomFields(v interface{}, cf map[string]interface{}) (map[string]interface{}, error) {
	kf, err := toMap(v)
	if err != nil {
		return nil, err
	}

	// set custom fields value if they are not present in the result map
	for k, v := range cf {
		if _, exists := kf[k]; !exists {
			kf[k] = v
		}
	}

	return kf, nil
}

func toMap(v interface{}) (map[string]interface{}, error) {
	var (
		b   []byte
		err error
	)

	switch cv := v.(type) {
	case []byte:
		b = cv
	case string:
		b = []byte(cv)
	default:
		b, err = json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, "convert to bytes")
		}
	}

	var m map[string]interface{}

	err = json.Unmarshal(b, &m)
	if err != nil {
		return nil, errors.Wrap(err, "convert to map")
	}

	return m, nil
}

func toMaps(v []interface{}) ([]map[string]interface{}, error) {
	maps := make([]map[string]interface{}, len(v))

	for i := range v {
		m, err := toMap(v[i])
		if err != nil {
			return nil, fmt.Errorf("convert to map: %w", err)
		}

		maps[i] = m
	}

	return maps, nil
}
