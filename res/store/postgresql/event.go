package postgresql

import (
	"context"
	"encoding/json"
	"time"

	"ifc-query-api/res/store"

	"github.com/rs/xid"
)

type eventStore struct {
	*storeImpl
}

func NewEventStore(rootStore *storeImpl) *eventStore {
	return &eventStore{storeImpl: rootStore}
}

// MUTATIONS

func (eStore *eventStore) Append(ctx context.Context, event, user string, properties map[string]interface{}) error {
	props := ""
	if len(properties) > 0 {
		encoded, err := json.Marshal(properties)
		if err != nil {
			return err
		}
		props = string(encoded)
	}

	newEvent := &store.Event{
		ID:         "evt_" + xid.New().String(),
		Timestamp:  time.Now().UTC(),
		Event:      event,
		User:       user,
		Properties: props,
	}

	result := eStore.db.WithContext(ctx).Create(newEvent)
	return result.Error
}
