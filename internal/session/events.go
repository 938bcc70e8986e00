package session

import (
	"github.com/google/uuid"

	"ibakit/internal/catalog"
	"ibakit/internal/loader"
	"ibakit/internal/pubsub"
	"ibakit/internal/registry"
)

// Event types published on the session broker.
const (
	EventLoadProgress    pubsub.EventType = "load.progress"
	EventLoadFailed      pubsub.EventType = "load.failed"
	EventCatalogReplaced pubsub.EventType = "catalog.replaced"
	EventCatalogClosed   pubsub.EventType = "catalog.closed"
	EventRegistryChanged pubsub.EventType = "registry.changed"
	EventSourceChanged   pubsub.EventType = "source.changed"
)

// Notice is the payload for session events. Fields are set per event
// type: progress events carry the milestone, replacement events carry
// the catalog, failure events carry the error text.
type Notice struct {
	LoadID         uuid.UUID
	Path           string
	Milestone      loader.Milestone
	MilestoneLabel string
	Catalog        *catalog.Catalog
	Err            string
	Change         *registry.Change
}

// Notices is the broker type observers subscribe to.
type Notices = pubsub.Broker[Notice]
