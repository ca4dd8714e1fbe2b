// row_id.go
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
	"fmt"
	"strconv"
	"strings"
)

// RowID is a record identifier that can be unmarshaled from either a JSON number or a JSON string.
// The number zero and false decode as no id. The string "0" is an id.
type RowID string

// UnmarshalJSON implements the json.Unmarshaler interface.
func (r *RowID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" || string(data) == "false" {
		*r = ""
		return nil
	}

	// Try unmarshaling as a number first
	if data[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			if f, err := n.Float64(); err == nil && f == 0 {
				*r = ""
			} else {
				*r = RowID(n.String())
			}
			return nil
		}
	}

	// Try unmarshaling as a string
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = RowID(strings.TrimSpace(s))
		return nil
	}

	return fmt.Errorf("RowID: unexpected type, expected number or string")
}

// Empty reports whether no id was supplied.
func (r RowID) Empty() bool {
	return r == ""
}

// Int returns the id as an integer when it is one.
func (r RowID) Int() (int, bool) {
	s := string(r)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	// 2.0 and 2e0 arrive from some clients for integral ids
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return int(f), true
	}
	return 0, false
}

// String returns the raw id text.
func (r RowID) String() string {
	return string(r)
}
