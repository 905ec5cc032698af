package handle

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/l1jgo/entkit/internal/core/ecs"
)

// EntityAssetQuery reads component D of entities registered under Id,
// addressed by their asset handles.
type EntityAssetQuery[Id comparable, D any] struct {
	inner *ecs.Query[D]
}

// NewEntityAssetQuery builds a query restricted to IdMarker[Id]. It panics
// if Id was not registered with RegisterEntityAssetID.
func NewEntityAssetQuery[Id comparable, D any](w *ecs.World, opts ...ecs.QueryOption) *EntityAssetQuery[Id, D] {
	cid, ok := ecs.ComponentIDOf[IdMarker[Id]](w)
	if !ok {
		panic(fmt.Sprintf("handle: identity type %s used before RegisterEntityAssetID", reflect.TypeFor[Id]()))
	}
	opts = append([]ecs.QueryOption{ecs.With(cid)}, opts...)
	return &EntityAssetQuery[Id, D]{inner: ecs.NewQuery[D](w, opts...)}
}

// Get returns a copy of D for the entity behind h.
func (q *EntityAssetQuery[Id, D]) Get(h AssetHandle[Id]) (D, error) {
	return q.inner.Get(h.Entity())
}

// GetMut returns D of the entity behind h for in-place mutation.
func (q *EntityAssetQuery[Id, D]) GetMut(h AssetHandle[Id]) (*D, error) {
	return q.inner.GetMut(h.Entity())
}

func (q *EntityAssetQuery[Id, D]) Iter() iter.Seq2[ecs.EntityID, D] { return q.inner.Iter() }

func (q *EntityAssetQuery[Id, D]) IterMut() iter.Seq2[ecs.EntityID, *D] { return q.inner.IterMut() }

func (q *EntityAssetQuery[Id, D]) Count() int { return q.inner.Count() }
