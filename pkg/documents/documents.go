package documents

import (
	"encoding/json"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDField is the name of the store assigned identifier in every document
const IDField string = "_id"

// Document is a schema free JSON object as stored in a collection
type Document map[string]any

// ID returns the store assigned identifier, or an empty string if the
// document has not been stored yet
func (d Document) ID() string {
	if id, ok := d[IDField].(string); ok {
		return id
	}
	return ""
}

// Without returns a shallow copy of the document without the named fields
func (d Document) Without(fields ...string) Document {
	cpy := make(Document, len(d))
	for k, v := range d {
		cpy[k] = v
	}
	for _, f := range fields {
		delete(cpy, f)
	}
	return cpy
}

// Missing returns the names of the fields that are absent, null or an empty
// string. Zero numbers and false booleans count as present.
func (d Document) Missing(fields []string) []string {
	missing := []string{}

	for _, f := range fields {
		v, ok := d[f]
		if !ok || v == nil {
			missing = append(missing, f)
			continue
		}

		if s, isString := v.(string); isString && s == "" {
			missing = append(missing, f)
		}
	}

	return missing
}

// Decode reads a single JSON object from r. Anything but whitespace after
// the object is an error.
func Decode(r io.Reader) (Document, error) {
	var doc Document

	dec := json.NewDecoder(r)

	err := dec.Decode(&doc)
	if err != nil {
		return nil, err
	}

	if doc == nil {
		return nil, fmt.Errorf("expected a json object")
	}

	var trailing json.RawMessage
	if err = dec.Decode(&trailing); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after json object")
	}

	return doc, nil
}

// ParseID converts a client supplied identifier into an ObjectID. Only the
// canonical 24 character hex representation is accepted.
func ParseID(id string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(id)
}

// IsValidID reports whether id is a well formed store identifier
func IsValidID(id string) bool {
	_, err := ParseID(id)
	return err == nil
}

// NewID allocates a new identifier. Only store implementations should call this.
func NewID() primitive.ObjectID {
	return primitive.NewObjectID()
}
