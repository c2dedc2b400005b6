package permissions

import (
	"github.com/opencollective/opencollective-api-sub009/internal/apierrors"
)

// FieldClass is the sensitivity class of a gated field. It decides what a denied
// caller observes.
type FieldClass string

const (
	ClassSecret            FieldClass = "secret"
	ClassCollection        FieldClass = "collection"
	ClassIncognitoRelation FieldClass = "incognito_relation"
	ClassMutation          FieldClass = "mutation"
)

// Surface is the schema version a field belongs to
type Surface string

const (
	SurfaceV1 Surface = "v1"
	SurfaceV2 Surface = "v2"
)

// Access is the outcome of an authorization decision for a value of type T
type Access[T any] struct {
	value   T
	visible bool
}

// Visible wraps a value the caller may see
func Visible[T any](value T) Access[T] {
	return Access[T]{value: value, visible: true}
}

// Denied is the empty outcome
func Denied[T any]() Access[T] {
	return Access[T]{}
}

// Decide returns Visible(value()) when allowed, Denied otherwise. value is not
// evaluated on denial.
func Decide[T any](allowed bool, value func() T) Access[T] {
	if !allowed {
		return Denied[T]()
	}
	return Visible(value())
}

// Get returns the value and whether it is visible
func (a Access[T]) Get() (T, bool) {
	return a.value, a.visible
}

// IsVisible reports whether access was granted
func (a Access[T]) IsVisible() bool {
	return a.visible
}

// Render converts the outcome to what the executor returns for a field of class on surface
func (a Access[T]) Render(class FieldClass, surface Surface) (interface{}, error) {
	if a.visible {
		return a.value, nil
	}
	return DenialValue(class, surface)
}

// DenialValue is the single table mapping a denied field to its observed value
func DenialValue(class FieldClass, surface Surface) (interface{}, error) {
	switch class {
	case ClassCollection:
		return []interface{}{}, nil
	case ClassIncognitoRelation:
		// v1 clients were built against non-null relations; they get an empty object
		if surface == SurfaceV1 {
			return map[string]interface{}{}, nil
		}
		return nil, nil
	case ClassMutation:
		return nil, apierrors.Forbidden("")
	default:
		return nil, nil
	}
}
