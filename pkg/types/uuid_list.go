package types

import "github.com/google/uuid"

// UUIDList is a jsonb-serialized list of ids (e.g. promotions applied to an order).
type UUIDList []uuid.UUID

// Contains reports whether id is present.
func (l UUIDList) Contains(id uuid.UUID) bool {
	for _, candidate := range l {
		if candidate == id {
			return true
		}
	}
	return false
}
