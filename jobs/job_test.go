package jobs

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jobsweep/errors"
)

func TestNewRequeue(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := Record{
		DocID:     "doc-1",
		Status:    StatusFailed,
		CreatedAt: &created,
		Metadata: map[string]interface{}{
			MetadataBlockNumber: int64(812345),
			"error_message":     "prover timed out",
			"attempts":          3,
		},
	}

	update, err := NewRequeue(rec)
	require.NoError(t, err)

	assert.Equal(t, StatusCreated, update.Status)
	assert.Equal(t, int32(0), update.Version)
	assert.Equal(t, created, update.UpdatedAt)
	assert.Equal(t, map[string]interface{}{MetadataBlockNumber: int64(812345)}, update.Metadata)
}

func TestNewRequeue_PreservesBlockNumberType(t *testing.T) {
	created := time.Now().UTC()
	rec := Record{
		DocID:     1,
		CreatedAt: &created,
		Metadata:  map[string]interface{}{MetadataBlockNumber: "0x1f"},
	}

	update, err := NewRequeue(rec)
	require.NoError(t, err)
	assert.Equal(t, "0x1f", update.Metadata[MetadataBlockNumber])
}

func TestNewRequeue_ShapeErrors(t *testing.T) {
	created := time.Now().UTC()

	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{
			name: "missing created_at",
			rec:  Record{DocID: "a", Metadata: map[string]interface{}{MetadataBlockNumber: 1}},
			want: "created_at",
		},
		{
			name: "missing metadata",
			rec:  Record{DocID: "b", CreatedAt: &created},
			want: "no metadata",
		},
		{
			name: "metadata without block number",
			rec:  Record{DocID: "c", CreatedAt: &created, Metadata: map[string]interface{}{"other": 1}},
			want: MetadataBlockNumber,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequeue(tt.rec)
			require.Error(t, err)
			assert.True(t, errors.IsRecordShapeError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestIDField_UUID(t *testing.T) {
	id := uuid.MustParse("7f1c2a9e-4b8d-4e3a-9c61-2d5f0a1b3c4d")

	got, err := IDField{Present: true, Binary: true, Subtype: 0x04, Data: id[:]}.UUID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "7f1c2a9e-4b8d-4e3a-9c61-2d5f0a1b3c4d", got.String())
}

func TestIDField_UUIDLegacySubtype(t *testing.T) {
	id := uuid.New()

	got, err := IDField{Present: true, Binary: true, Subtype: 0x03, Data: id[:]}.UUID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestIDField_UUIDShapeErrors(t *testing.T) {
	tests := []struct {
		name  string
		field IDField
		want  string
	}{
		{"absent", IDField{DocID: "x"}, "no id field"},
		{"string value", IDField{DocID: "x", Present: true, Kind: "string"}, "string, not binary"},
		{"short binary", IDField{DocID: "x", Present: true, Binary: true, Data: []byte{1, 2, 3}}, "3 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.field.UUID()
			require.Error(t, err)
			assert.True(t, errors.IsRecordShapeError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestIDField_String(t *testing.T) {
	assert.Equal(t, "<absent>", IDField{}.String())
	assert.Equal(t, "Binary(subtype=0x04, 16 bytes)", IDField{Present: true, Binary: true, Subtype: 4, Data: make([]byte, 16)}.String())
	assert.Equal(t, "<int32>", IDField{Present: true, Kind: "int32"}.String())
}

func TestRecord_DocIDString(t *testing.T) {
	assert.Equal(t, "abc", Record{DocID: "abc"}.DocIDString())
	assert.Equal(t, "42", Record{DocID: 42}.DocIDString())
	id := uuid.New()
	assert.Equal(t, id.String(), Record{DocID: id}.DocIDString())
}

// hexKey stands in for a store object id: it has both Hex and String
type hexKey [3]byte

func (k hexKey) Hex() string    { return fmt.Sprintf("%x", k[:]) }
func (k hexKey) String() string { return fmt.Sprintf("ObjectID(%q)", k.Hex()) }

func TestRecord_DocIDStringPrefersHex(t *testing.T) {
	assert.Equal(t, "65ab01", Record{DocID: hexKey{0x65, 0xab, 0x01}}.DocIDString())
}
