package external

import "github.com/segmentio/ksuid"

// Event keys on an imported type. The generator takes it on trust; the
// marshaler check happens when the collection is built.
type Event struct {
	ID   ksuid.KSUID `store:"key"`
	Kind string      `store:"index"`
}
