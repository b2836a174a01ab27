package filestore

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/m3rciful/homeworkbot/internal/homework"
)

// items is the stored value for one date. It decodes both the current array
// form and the legacy pre-numbered string.
type items []string

func (it *items) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*it = homework.ParseNumbered(text)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*it = list
	return nil
}

// document maps owner id to date key (DD.MM.YYYY) to items.
type document map[string]map[string]items

// decodeDocument parses the file body. A top-level value that is not an
// object belongs to the single global list of the oldest format and is
// filed under owner 0.
func decodeDocument(data []byte) (document, error) {
	doc := make(document)
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	global := ownerKey(homework.SharedOwner)
	for key, raw := range top {
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '{' {
			var dates map[string]items
			if err := json.Unmarshal(raw, &dates); err != nil {
				return nil, fmt.Errorf("owner %s: %w", key, err)
			}
			if doc[key] == nil {
				doc[key] = dates
			} else {
				for d, v := range dates {
					doc[key][d] = v
				}
			}
			continue
		}
		var v items
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("date %s: %w", key, err)
		}
		if doc[global] == nil {
			doc[global] = make(map[string]items)
		}
		doc[global][key] = v
	}
	return doc, nil
}

// encode writes the document indented, with Unicode left unescaped.
func (doc document) encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
