// flex_list.go
//
// A REST data service that exposes spreadsheet sheets as JSON collections
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of sheetsdb.
// sheetsdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// sheetsdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with sheetsdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package types

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNotObject is returned when a FlexList item is not a JSON object.
var ErrNotObject = errors.New("expected a JSON object or an array of JSON objects")

// FlexList holds request items that arrived as either a single JSON object or a JSON array of them.
// Single remembers which form was used so responses can echo the same shape.
type FlexList[T any] struct {
	Items  []T
	Single bool
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FlexList[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return ErrNotObject
	}

	switch data[0] {
	case '[':
		var slice []T
		if err := json.Unmarshal(data, &slice); err != nil {
			return err
		}
		f.Items = slice
		f.Single = false
		return nil
	case '{':
		var item T
		if err := json.Unmarshal(data, &item); err != nil {
			return err
		}
		f.Items = []T{item}
		f.Single = true
		return nil
	}

	return ErrNotObject
}

// MarshalJSON writes the list back in the shape it was received.
func (f FlexList[T]) MarshalJSON() ([]byte, error) {
	if f.Single && len(f.Items) == 1 {
		return json.Marshal(f.Items[0])
	}
	if f.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f.Items)
}

// Slice returns the received items.
func (f FlexList[T]) Slice() []T {
	return f.Items
}
