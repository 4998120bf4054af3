package storage

import "registryScope/internal/model"

// EventSink receives membership event records in timeline order.
type EventSink interface {
	PutEventBatch(events []model.EventRecord) error
}
