package cache

import "github.com/google/uuid"

// opKind tags a mutation submitted to the writer task.
type opKind uint8

const (
	opInsert opKind = iota
	opRefresh
	opRemove
	opSweep
	opForcePublish
)

// String renders a kind for logging.
func (k opKind) String() string {
	switch k {
	case opInsert:
		return "insert"
	case opRefresh:
		return "refresh"
	case opRemove:
		return "remove"
	case opSweep:
		return "sweep"
	case opForcePublish:
		return "force_publish"
	default:
		return "unknown"
	}
}

// op is a single queued mutation. Ops from one producer are applied in
// submission order; across producers, channel order is observable order.
type op struct {
	kind    opKind
	id      uuid.UUID
	payload []byte
}
