package handle

import (
	"fmt"
	"reflect"

	"github.com/l1jgo/entkit/internal/core/ecs"
)

// EntityServer issues handles. All structural changes it causes go through
// the world's Commands and become visible at the next flush.
type EntityServer struct {
	handler  *EntityHandler
	intents  *IntentRegistry
	commands *ecs.Commands
}

// NewEntityServer binds a server to w. It panics if the handle plugin is missing.
func NewEntityServer(w *ecs.World) *EntityServer {
	return &EntityServer{
		handler:  ecs.MustResource[EntityHandler](w),
		intents:  ecs.MustResource[IntentRegistry](w),
		commands: w.Commands(),
	}
}

// Handler returns the EntityHandler backing s.
func (s *EntityServer) Handler() *EntityHandler { return s.handler }

// Spawn queues a new entity carrying components and IntentMarker[I] and
// returns the only handle to it. It panics if I is not registered.
func Spawn[I any](s *EntityServer, components ...any) *EntityHandle[I] {
	marker := markerOf[I](s.intents)

	bundle := make([]any, 0, len(components)+1)
	bundle = append(bundle, components...)
	bundle = append(bundle, IntentMarker[I]{})
	entity := s.commands.Spawn(bundle...)

	strong, intent, _ := s.handler.acquire(entity, marker)
	return newEntityHandle[I](entity, strong, intent)
}

// SpawnEmpty spawns a managed entity that only carries IntentMarker[I].
func SpawnEmpty[I any](s *EntityServer) *EntityHandle[I] {
	return Spawn[I](s)
}

// ToManaged returns a handle holding entity under intent I. Live claims are
// shared; a missing intent claim queues insertion of IntentMarker[I]. The
// entity may have been spawned outside the server; it is despawned once the
// last handle is released.
func ToManaged[I any](s *EntityServer, entity ecs.EntityID) *EntityHandle[I] {
	marker := markerOf[I](s.intents)

	strong, intent, fresh := s.handler.acquire(entity, marker)
	if fresh {
		s.commands.Insert(entity, IntentMarker[I]{})
	}
	return newEntityHandle[I](entity, strong, intent)
}

// EntityAssetServer deduplicates entities by identity key.
type EntityAssetServer[Id comparable] struct {
	*EntityServer
	registry *EntityRegistry[Id]
}

// NewEntityAssetServer binds an asset server for Id to w. It panics if Id
// was not registered with RegisterEntityAssetID.
func NewEntityAssetServer[Id comparable](w *ecs.World) *EntityAssetServer[Id] {
	reg, ok := ecs.Resource[EntityRegistry[Id]](w)
	if !ok {
		panic(fmt.Sprintf("handle: identity type %s used before RegisterEntityAssetID", reflect.TypeFor[Id]()))
	}
	return &EntityAssetServer[Id]{
		EntityServer: NewEntityServer(w),
		registry:     reg,
	}
}

// Registry returns the identity registry backing s.
func (s *EntityAssetServer[Id]) Registry() *EntityRegistry[Id] { return s.registry }

// GetAsset returns a handle to the entity for id under intent I, spawning
// and registering it on first request.
func GetAsset[Id comparable, I any](s *EntityAssetServer[Id], id Id) *EntityAssetHandle[Id, I] {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()

	if entity, ok := s.registry.byKey[id]; ok {
		return upcastAsset[Id](ToManaged[I](s.EntityServer, entity))
	}
	h := Spawn[I](s.EntityServer, IdMarker[Id]{})
	s.registry.insertLocked(id, h.Entity())
	return upcastAsset[Id](h)
}
