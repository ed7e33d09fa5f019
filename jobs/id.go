package jobs

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/teranos/jobsweep/errors"
)

// IDField is the job's id field exactly as the store returned it
type IDField struct {
	DocID   interface{} // for log lines only
	Present bool        // false when the document has no id field
	Binary  bool        // true when the stored value is BSON binary
	Subtype byte        // BSON binary subtype (0x04 standard UUID, 0x03 legacy)
	Data    []byte
	Kind    string // stored BSON type name, for diagnostics
}

// UUID decodes the field as a 128-bit UUID. Absent, non-binary and
// wrong-length values are record-shape errors.
func (f IDField) UUID() (uuid.UUID, error) {
	if !f.Present {
		return uuid.Nil, errors.NewRecordShapeError("document %v has no id field", f.DocID)
	}
	if !f.Binary {
		return uuid.Nil, errors.NewRecordShapeError("document %v id is %s, not binary", f.DocID, f.kind())
	}
	id, err := uuid.FromBytes(f.Data)
	if err != nil {
		return uuid.Nil, errors.NewRecordShapeError("document %v id is %d bytes, not a UUID: %v", f.DocID, len(f.Data), err)
	}
	return id, nil
}

func (f IDField) kind() string {
	if f.Kind != "" {
		return f.Kind
	}
	return "an unknown type"
}

// String renders the raw field for debug output
func (f IDField) String() string {
	switch {
	case !f.Present:
		return "<absent>"
	case f.Binary:
		return fmt.Sprintf("Binary(subtype=0x%02x, %d bytes)", f.Subtype, len(f.Data))
	default:
		return fmt.Sprintf("<%s>", f.kind())
	}
}
