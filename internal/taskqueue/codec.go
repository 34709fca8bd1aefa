package taskqueue

import (
	"github.com/petrijr/wizflow/internal/persistence"
)

// EncodeTask serializes a task with the submission codec, so queued values
// decode to the same shapes a stored submission has.
func EncodeTask(t Task) ([]byte, error) {
	return persistence.EncodeValue(t)
}

// DecodeTask decodes a payload produced by EncodeTask.
func DecodeTask(data []byte) (*Task, error) {
	t, err := persistence.DecodeValue[Task](data)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
