package infrastructure

import (
	"fmt"

	"cubeduel/events"
)

var eventSubjects = map[events.EventType]string{
	events.EventTypeBalanceChange:      "users.balance_changed",
	events.EventTypeUserCreated:        "users.created",
	events.EventTypeCubeMatchOpened:    "cube.match.opened",
	events.EventTypeCubeMatchStarted:   "cube.match.started",
	events.EventTypeCubeThrowRecorded:  "cube.throw.recorded",
	events.EventTypeCubeRoundTied:      "cube.round.tied",
	events.EventTypeCubeMatchSettled:   "cube.match.settled",
	events.EventTypeCubeMatchForfeited: "cube.match.forfeited",
	events.EventTypeCubeMatchCanceled:  "cube.match.canceled",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("unknown.%s", event.Type())
}

// EventTypes returns every event type that has a subject
func (m *EventSubjectMapper) EventTypes() []events.EventType {
	types := make([]events.EventType, 0, len(eventSubjects))
	for t := range eventSubjects {
		types = append(types, t)
	}
	return types
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	subjects := make([]string, 0, len(eventSubjects))
	for _, s := range eventSubjects {
		subjects = append(subjects, s)
	}
	return subjects
}
