package handle

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/l1jgo/entkit/internal/core/app"
	"github.com/l1jgo/entkit/internal/core/ecs"
)

// IntentRegistry maps intent types to the ComponentID of their marker.
type IntentRegistry struct {
	mu      sync.RWMutex
	markers map[reflect.Type]ecs.ComponentID
}

func newIntentRegistry() *IntentRegistry {
	return &IntentRegistry{markers: make(map[reflect.Type]ecs.ComponentID)}
}

func (r *IntentRegistry) register(intent reflect.Type, marker ecs.ComponentID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markers[intent] = marker
}

// Marker returns the marker ComponentID registered for intent.
func (r *IntentRegistry) Marker(intent reflect.Type) (ecs.ComponentID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cid, ok := r.markers[intent]
	return cid, ok
}

func markerOf[I any](r *IntentRegistry) ecs.ComponentID {
	intent := reflect.TypeFor[I]()
	cid, ok := r.Marker(intent)
	if !ok {
		panic(fmt.Sprintf("handle: intent %s used before RegisterIntent", intent))
	}
	return cid
}

// PrunePolicy decides what happens to an identity mapping once its entity
// is despawned.
type PrunePolicy int

const (
	// NeverPrune keeps the mapping forever; it points at a dead entity after
	// despawn and GetAsset hands out handles to that dead entity.
	NeverPrune PrunePolicy = iota
	// PruneOnDespawn forgets the mapping when the entity despawns, so the
	// next GetAsset for the key spawns a fresh entity.
	PruneOnDespawn
)

func (p PrunePolicy) String() string {
	switch p {
	case NeverPrune:
		return "never"
	case PruneOnDespawn:
		return "on_despawn"
	}
	return fmt.Sprintf("PrunePolicy(%d)", int(p))
}

// ParsePrunePolicy parses the config spelling of a PrunePolicy.
func ParsePrunePolicy(s string) (PrunePolicy, error) {
	switch s {
	case "", "never":
		return NeverPrune, nil
	case "on_despawn":
		return PruneOnDespawn, nil
	}
	return NeverPrune, fmt.Errorf("unknown registry policy %q", s)
}

// EntityRegistry maps identity keys of type Id to their unique entity.
type EntityRegistry[Id comparable] struct {
	mu       sync.Mutex
	byKey    map[Id]ecs.EntityID
	byEntity map[ecs.EntityID]Id
	policy   PrunePolicy
}

func newEntityRegistry[Id comparable](policy PrunePolicy) *EntityRegistry[Id] {
	return &EntityRegistry[Id]{
		byKey:    make(map[Id]ecs.EntityID),
		byEntity: make(map[ecs.EntityID]Id),
		policy:   policy,
	}
}

// Get returns the entity registered for id.
func (r *EntityRegistry[Id]) Get(id Id) (ecs.EntityID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byKey[id]
	return e, ok
}

func (r *EntityRegistry[Id]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey)
}

func (r *EntityRegistry[Id]) Policy() PrunePolicy { return r.policy }

// insertLocked records id → entity. Two entities claiming one key is a logic
// error.
func (r *EntityRegistry[Id]) insertLocked(id Id, entity ecs.EntityID) {
	if prev, ok := r.byKey[id]; ok && prev != entity {
		panic(fmt.Sprintf("handle: identity %v already registered to %s, refusing %s", id, prev, entity))
	}
	r.byKey[id] = entity
	r.byEntity[entity] = id
}

func (r *EntityRegistry[Id]) prune(entity ecs.EntityID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEntity[entity]
	if !ok {
		return
	}
	delete(r.byEntity, entity)
	if r.byKey[id] == entity {
		delete(r.byKey, id)
	}
}

// RegistryOption configures RegisterEntityAssetID.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	policy PrunePolicy
}

// WithPrunePolicy overrides the plugin's default policy for one identity type.
func WithPrunePolicy(p PrunePolicy) RegistryOption {
	return func(o *registryOptions) {
		o.policy = p
	}
}

// RegisterIntent makes I usable as an intent. It must run during setup,
// after the plugin and before any handle with intent I is requested.
func RegisterIntent[I any](a *app.App) {
	intents, ok := ecs.Resource[IntentRegistry](a.World)
	if !ok {
		panic("handle: add the handle plugin before registering intents")
	}
	intents.register(reflect.TypeFor[I](), ecs.RegisterComponent[IntentMarker[I]](a.World))
}

// RegisterEntityAssetID makes Id usable as an identity key for
// EntityAssetServer[Id]. Registering the same Id twice keeps the first registry.
func RegisterEntityAssetID[Id comparable](a *app.App, opts ...RegistryOption) {
	settings, ok := ecs.Resource[pluginSettings](a.World)
	if !ok {
		panic("handle: add the handle plugin before registering identity types")
	}
	if _, exists := ecs.Resource[EntityRegistry[Id]](a.World); exists {
		return
	}
	o := registryOptions{policy: settings.policy}
	for _, opt := range opts {
		opt(&o)
	}

	reg := newEntityRegistry[Id](o.policy)
	ecs.SetResource(a.World, reg)
	cid := ecs.RegisterComponent[IdMarker[Id]](a.World)
	if o.policy == PruneOnDespawn {
		a.World.OnRemove(cid, func(_ *ecs.World, e ecs.EntityID) {
			reg.prune(e)
		})
	}
}
