package persistence

import (
	"encoding/json"
	"time"

	"github.com/petrijr/wizflow/pkg/api"
)

// EncodeValue serializes a stored value as JSON. Submission values are
// schemaless JSON on the wire, so every backend stores the same encoding.
func EncodeValue(v any) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeValue decodes a JSON payload produced by EncodeValue.
func DecodeValue[T any](data []byte) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	err := json.Unmarshal(data, &v)
	return v, err
}

// cloneValue deep-copies v through its stored encoding, so callers never
// share maps with a store and see the same types every backend returns.
func cloneValue[T any](v T) (T, error) {
	data, err := EncodeValue(v)
	if err != nil {
		var zero T
		return zero, err
	}
	return DecodeValue[T](data)
}

// nextRecord returns the copy of rec that a successful save will store.
func nextRecord(rec *api.SubmissionRecord, expectedVersion int64) api.SubmissionRecord {
	next := *rec
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now().UTC()
	return next
}
