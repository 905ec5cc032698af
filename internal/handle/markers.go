package handle

// NoIntent is the default intent. Plugin registers it.
type NoIntent struct{}

// IntentMarker is attached to an entity while at least one handle holds it
// under intent I. It is the integration point for other systems: query for
// IntentMarker[I] to find every entity somebody wants for reason I.
type IntentMarker[I any] struct{}

// IdMarker tags entities created through an EntityAssetServer[Id].
type IdMarker[Id comparable] struct{}
