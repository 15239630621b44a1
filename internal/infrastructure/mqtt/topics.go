package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when the configuration leaves topic_prefix empty.
const DefaultTopicPrefix = "hikgate"

// Topics builds topic names under a deployment prefix.
//
//	topics := mqtt.NewTopics("hikgate/site-a")
//	topics.PersonEvent("created") // "hikgate/site-a/events/person/created"
type Topics struct {
	prefix string
}

// NewTopics returns builders rooted at prefix, trimming surrounding slashes.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the root all topics are built under.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// SystemStatus carries the retained online/offline status.
//
// Example: hikgate/system/status
func (t Topics) SystemStatus() string {
	return t.Prefix() + "/system/status"
}

// PersonEvent is published after a person create, update or photo change.
//
// Example: hikgate/events/person/updated
func (t Topics) PersonEvent(action string) string {
	return fmt.Sprintf("%s/events/person/%s", t.Prefix(), action)
}

// VehicleEvent is published when a person's vehicle set changes.
//
// Example: hikgate/events/vehicle/changed
func (t Topics) VehicleEvent(action string) string {
	return fmt.Sprintf("%s/events/vehicle/%s", t.Prefix(), action)
}

// AccessEvent is published after an access level assignment.
//
// Example: hikgate/events/access/assigned
func (t Topics) AccessEvent(action string) string {
	return fmt.Sprintf("%s/events/access/%s", t.Prefix(), action)
}

// AllEvents matches every event topic.
func (t Topics) AllEvents() string {
	return t.Prefix() + "/events/#"
}
