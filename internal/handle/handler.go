package handle

import (
	"sync"

	"github.com/l1jgo/entkit/internal/core/ecs"
	"github.com/l1jgo/entkit/internal/core/event"
	"go.uber.org/zap"
)

// EntityDespawned is emitted on the bus when reconciliation despawns a
// managed entity.
type EntityDespawned struct {
	Entity ecs.EntityID
}

type intentKey struct {
	entity ecs.EntityID
	marker ecs.ComponentID
}

// Stats is a snapshot of the handler's bookkeeping.
type Stats struct {
	TrackedEntities    int
	TrackedIntents     int
	PendingEntityDrops int
	PendingIntentDrops int
	Despawned          uint64
	MarkersRemoved     uint64
}

// EntityHandler owns the drop queues and the tables of current tokens. A
// table entry whose token count is zero plays the role of a dead weak
// reference: it is only removed by Execute.
type EntityHandler struct {
	mu          sync.Mutex
	entityDrops dropQueue[dropEntityEvent]
	intentDrops dropQueue[dropIntentEvent]
	entities    map[ecs.EntityID]*token[dropEntityEvent]
	intents     map[intentKey]*token[dropIntentEvent]

	despawned      uint64
	markersRemoved uint64

	bus *event.Bus
	log *zap.Logger
}

// NewEntityHandler creates a handler. bus may be nil.
func NewEntityHandler(bus *event.Bus, log *zap.Logger) *EntityHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EntityHandler{
		entities: make(map[ecs.EntityID]*token[dropEntityEvent]),
		intents:  make(map[intentKey]*token[dropIntentEvent]),
		bus:      bus,
		log:      log,
	}
}

// acquire returns a retained token for entity and for (entity, marker),
// creating whichever is missing or dead. The boolean reports whether the
// intent token is new, meaning the marker has to be inserted.
func (h *EntityHandler) acquire(entity ecs.EntityID, marker ecs.ComponentID) (*token[dropEntityEvent], *token[dropIntentEvent], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	strong, ok := h.entities[entity]
	if !ok || !strong.tryRetain() {
		strong = newToken(dropEntityEvent{entity: entity}, &h.entityDrops)
		h.entities[entity] = strong
	}

	key := intentKey{entity: entity, marker: marker}
	intent, ok := h.intents[key]
	if ok && intent.tryRetain() {
		return strong, intent, false
	}
	intent = newToken(dropIntentEvent{entity: entity, marker: marker}, &h.intentDrops)
	h.intents[key] = intent
	return strong, intent, true
}

// Execute reconciles every drop queued since the previous call. Intent drops
// are applied before entity drops. A drop whose key was reacquired in the
// meantime, or was already cleaned up by an earlier duplicate event, is
// skipped.
func (h *EntityHandler) Execute(cmds *ecs.Commands) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ev := range h.intentDrops.drain() {
		key := intentKey{entity: ev.entity, marker: ev.marker}
		tok, ok := h.intents[key]
		if !ok || tok.alive() {
			continue
		}
		cmds.Remove(ev.entity, ev.marker)
		delete(h.intents, key)
		h.markersRemoved++
		h.log.Debug("intent marker removed",
			zap.Stringer("entity", ev.entity),
			zap.Uint32("marker", uint32(ev.marker)))
	}

	for _, ev := range h.entityDrops.drain() {
		tok, ok := h.entities[ev.entity]
		if !ok || tok.alive() {
			continue
		}
		delete(h.entities, ev.entity)
		entity := ev.entity
		cmds.Queue(func(w *ecs.World) { h.despawn(w, entity) })
	}
}

// despawn runs at flush. A handle acquired between Execute and the flush
// re-creates the table entry, and the entity is kept for it.
func (h *EntityHandler) despawn(w *ecs.World, entity ecs.EntityID) {
	h.mu.Lock()
	_, reacquired := h.entities[entity]
	if !reacquired {
		h.despawned++
	}
	h.mu.Unlock()

	if reacquired {
		h.log.Debug("despawn cancelled by new handle", zap.Stringer("entity", entity))
		return
	}
	w.Despawn(entity)
	h.log.Debug("managed entity despawned", zap.Stringer("entity", entity))
	if h.bus != nil {
		event.Emit(h.bus, EntityDespawned{Entity: entity})
	}
}

// Managed reports whether entity currently has a live strong token.
func (h *EntityHandler) Managed(entity ecs.EntityID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	tok, ok := h.entities[entity]
	return ok && tok.alive()
}

// RefCount returns the number of live handles on entity.
func (h *EntityHandler) RefCount(entity ecs.EntityID) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if tok, ok := h.entities[entity]; ok {
		return tok.count()
	}
	return 0
}

func (h *EntityHandler) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TrackedEntities:    len(h.entities),
		TrackedIntents:     len(h.intents),
		PendingEntityDrops: h.entityDrops.len(),
		PendingIntentDrops: h.intentDrops.len(),
		Despawned:          h.despawned,
		MarkersRemoved:     h.markersRemoved,
	}
}

// Close stops accepting drop notifications. Handles released afterwards
// are ignored; the world is going away with them.
func (h *EntityHandler) Close() {
	h.entityDrops.close()
	h.intentDrops.close()
}
