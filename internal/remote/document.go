package remote

import (
	"encoding/json"
	"fmt"
)

// Document is one stored record.
type Document struct {
	ID   string
	Data map[string]any
}

// DataTo decodes the document's fields into v using its json tags.
func (d Document) DataTo(v any) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", d.ID, err)
	}
	return nil
}

// ToData converts a json-tagged struct into a document field map.
func ToData(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// Snapshot is the full result set of a query at one point in time.
type Snapshot struct {
	Docs []Document
}

// Empty reports whether the snapshot has no documents.
func (s Snapshot) Empty() bool {
	return len(s.Docs) == 0
}

// First returns the first document of the snapshot.
func (s Snapshot) First() (Document, bool) {
	if len(s.Docs) == 0 {
		return Document{}, false
	}
	return s.Docs[0], true
}
