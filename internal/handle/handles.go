package handle

import (
	"fmt"
	"sync/atomic"

	"github.com/l1jgo/entkit/internal/core/ecs"
)

// EntityHandle keeps an entity alive and claimed under intent I. Every
// handle value must be released exactly once; Clone shares the claim. Once
// the last handle for the entity (or for the entity and intent) is released,
// the next reconciliation despawns the entity (or removes IntentMarker[I]).
type EntityHandle[I any] struct {
	entity   ecs.EntityID
	strong   *token[dropEntityEvent]
	intent   *token[dropIntentEvent]
	released atomic.Bool
}

func newEntityHandle[I any](entity ecs.EntityID, strong *token[dropEntityEvent], intent *token[dropIntentEvent]) *EntityHandle[I] {
	return &EntityHandle[I]{entity: entity, strong: strong, intent: intent}
}

// Entity returns the underlying entity id.
func (h *EntityHandle[I]) Entity() ecs.EntityID { return h.entity }

// Clone returns a new handle sharing both claims. Cloning a released handle panics.
func (h *EntityHandle[I]) Clone() *EntityHandle[I] {
	if h.released.Load() {
		panic(fmt.Sprintf("handle: clone of released %s", h))
	}
	h.strong.retain()
	h.intent.retain()
	return newEntityHandle[I](h.entity, h.strong, h.intent)
}

// Release gives up this handle's claims. Further calls are no-ops. Release
// is safe from any goroutine.
func (h *EntityHandle[I]) Release() {
	if !h.released.CompareAndSwap(false, true) {
		return
	}
	h.intent.release()
	h.strong.release()
}

// Released reports whether Release was called on this handle value.
func (h *EntityHandle[I]) Released() bool { return h.released.Load() }

func (h *EntityHandle[I]) String() string {
	return fmt.Sprintf("EntityHandle(%s)", h.entity)
}

// AssetHandle is satisfied by every EntityAssetHandle registered under Id,
// whatever its intent.
type AssetHandle[Id comparable] interface {
	Entity() ecs.EntityID
	identity() IdMarker[Id]
}

// EntityAssetHandle is an EntityHandle whose entity is known to carry
// IdMarker[Id]. Only EntityAssetServer creates them.
type EntityAssetHandle[Id comparable, I any] struct {
	handle *EntityHandle[I]
}

// upcastAsset wraps h without checking for IdMarker[Id]. Callers must have
// spawned or looked up h's entity through EntityRegistry[Id].
func upcastAsset[Id comparable, I any](h *EntityHandle[I]) *EntityAssetHandle[Id, I] {
	return &EntityAssetHandle[Id, I]{handle: h}
}

func (h *EntityAssetHandle[Id, I]) Entity() ecs.EntityID   { return h.handle.entity }
func (h *EntityAssetHandle[Id, I]) identity() IdMarker[Id] { return IdMarker[Id]{} }
func (h *EntityAssetHandle[Id, I]) Release()               { h.handle.Release() }
func (h *EntityAssetHandle[Id, I]) Released() bool         { return h.handle.Released() }

func (h *EntityAssetHandle[Id, I]) Clone() *EntityAssetHandle[Id, I] {
	return &EntityAssetHandle[Id, I]{handle: h.handle.Clone()}
}

// Untyped returns a plain EntityHandle sharing the same claims. The caller
// owns the returned handle and must release it.
func (h *EntityAssetHandle[Id, I]) Untyped() *EntityHandle[I] {
	return h.handle.Clone()
}

func (h *EntityAssetHandle[Id, I]) String() string {
	return fmt.Sprintf("EntityAssetHandle(%s)", h.handle.entity)
}
