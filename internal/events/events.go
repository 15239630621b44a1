// Package events announces registration changes on MQTT so gate displays
// and sync jobs can react without polling HikCentral.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hikgate/hikgate-core/internal/infrastructure/mqtt"
	"github.com/hikgate/hikgate-core/internal/person"
)

// Kind names what happened.
type Kind string

const (
	PersonCreated  Kind = "person.created"
	PersonUpdated  Kind = "person.updated"
	PhotoUpdated   Kind = "person.photo_updated"
	VehiclesChange Kind = "vehicle.changed"
	AccessAssigned Kind = "access.assigned"
)

// Event is the JSON body of every published message.
type Event struct {
	Kind        Kind           `json:"kind"`
	PersonID    string         `json:"personId,omitempty"`
	PersonCode  string         `json:"personCode,omitempty"`
	AccessLevel string         `json:"accessLevel,omitempty"`
	UserID      string         `json:"userId,omitempty"`
	Report      *person.Report `json:"report,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// FromReport builds the event for a finished workflow run.
func FromReport(kind Kind, report *person.Report, userID string) Event {
	return Event{
		Kind:       kind,
		PersonID:   report.PersonID,
		PersonCode: report.PersonCode,
		UserID:     userID,
		Report:     report,
	}
}

// Publisher sends events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ev Event) error
}

// Noop discards events. Used when MQTT is disabled.
type Noop struct{}

// Publish does nothing.
func (Noop) Publish(Event) error { return nil }

// Broker is the subset of *mqtt.Client used here.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Topics() mqtt.Topics
	QoS() byte
}

// MQTTPublisher publishes events to per-kind topics.
type MQTTPublisher struct {
	client Broker
	now    func() time.Time
}

// NewMQTTPublisher wraps a connected client.
func NewMQTTPublisher(client Broker) *MQTTPublisher {
	return &MQTTPublisher{client: client, now: time.Now}
}

// Publish stamps ev and sends it. Vehicle changes carried by a person event
// are also announced on the vehicle topic.
func (p *MQTTPublisher) Publish(ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = p.now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", ev.Kind, err)
	}

	topics := p.client.Topics()
	if err := p.client.Publish(TopicFor(topics, ev.Kind), payload, p.client.QoS(), false); err != nil {
		return fmt.Errorf("publishing %s event: %w", ev.Kind, err)
	}

	if ev.Kind != VehiclesChange && ev.Report != nil &&
		(len(ev.Report.VehiclesAdded) > 0 || len(ev.Report.VehiclesRemoved) > 0) {
		ev.Kind = VehiclesChange
		payload, err = json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encoding %s event: %w", ev.Kind, err)
		}
		if err := p.client.Publish(TopicFor(topics, VehiclesChange), payload, p.client.QoS(), false); err != nil {
			return fmt.Errorf("publishing %s event: %w", ev.Kind, err)
		}
	}
	return nil
}

// TopicFor maps kind to its topic.
func TopicFor(topics mqtt.Topics, kind Kind) string {
	switch kind {
	case PersonCreated:
		return topics.PersonEvent("created")
	case PersonUpdated:
		return topics.PersonEvent("updated")
	case PhotoUpdated:
		return topics.PersonEvent("photo")
	case VehiclesChange:
		return topics.VehicleEvent("changed")
	case AccessAssigned:
		return topics.AccessEvent("assigned")
	default:
		return topics.Prefix() + "/events/other"
	}
}
