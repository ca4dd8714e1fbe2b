package transform

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/localnerve/sheetsdb/internal/types"
)

// Payload is a decoded write request body
type Payload struct {
	Records types.FlexList[Record]
	// ID is the id of a single-record body. Empty for arrays and falsy ids.
	ID types.RowID
}

// Data is the unwrapped body as it is echoed back to the client
func (p *Payload) Data() any {
	if p.Records.Single && len(p.Records.Items) == 1 {
		return p.Records.Items[0]
	}
	if p.Records.Items == nil {
		return []Record{}
	}
	return p.Records.Items
}

// First returns the first record, or nil when there are none
func (p *Payload) First() Record {
	if len(p.Records.Items) == 0 {
		return nil
	}
	return p.Records.Items[0]
}

// UnwrapBody decodes a write body in two steps. The body must be JSON. When
// it is an object holding a key equal to the sheet name whose value is an
// object or an array, that value is the payload, otherwise the body is.
func UnwrapBody(body []byte, sheetName string) (*Payload, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, types.BadRequest("Invalid JSON body")
	}

	selected := raw
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if inner, ok := envelope[sheetName]; ok && isContainer(inner) {
			selected = inner
		}
	}

	payload := &Payload{}
	if err := json.Unmarshal(selected, &payload.Records); err != nil {
		if errors.Is(err, types.ErrNotObject) {
			return nil, types.BadRequest("Body must be a JSON object or an array of objects")
		}
		return nil, types.BadRequest("Invalid JSON body")
	}

	if payload.Records.Single {
		var keyed struct {
			ID types.RowID `json:"id"`
		}
		// an id of another type is left empty and reported as missing
		if err := json.Unmarshal(selected, &keyed); err == nil {
			payload.ID = keyed.ID
		}
	}

	return payload, nil
}

func isContainer(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}
