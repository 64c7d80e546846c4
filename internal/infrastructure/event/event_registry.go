package event

import "github.com/prepacking/backend/internal/domain/prepacking"

// RegisterAllEvents registers the domain events the service publishes
func RegisterAllEvents(serializer *EventSerializer) {
	serializer.Register(prepacking.EventTypePrepackingEventCreated, &prepacking.PrepackingEventCreatedEvent{})
	serializer.Register(prepacking.EventTypePrepackingEventAuthorized, &prepacking.PrepackingEventAuthorizedEvent{})
	serializer.Register(prepacking.EventTypePrepackingEventRejected, &prepacking.PrepackingEventRejectedEvent{})
}
