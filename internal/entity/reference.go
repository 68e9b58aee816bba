package entity

import (
	"github.com/google/uuid"

	"github.com/lumascope/entgraph/internal/record"
)

// Specifier is the serializable identifier denoting "the object with this
// identity", independent of whether that object is currently reachable.
// The zero value means no object is specified.
type Specifier struct {
	id uuid.UUID
}

// SpecifierFor returns the specifier for an object (zero for nil).
func SpecifierFor(o *Object) Specifier {
	if o == nil {
		return Specifier{}
	}
	return Specifier{id: o.id}
}

// ParseSpecifier parses the canonical string form. An empty string parses
// to the zero specifier; a malformed string is a read failure.
func ParseSpecifier(s string) (Specifier, error) {
	if s == "" {
		return Specifier{}, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return Specifier{}, &record.ReadError{Message: "malformed specifier " + s}
	}
	return Specifier{id: id}, nil
}

// IsZero reports whether no object is specified.
func (s Specifier) IsZero() bool { return s.id == uuid.Nil }

// String returns the canonical string form, or "" for the zero specifier.
func (s Specifier) String() string {
	if s.IsZero() {
		return ""
	}
	return s.id.String()
}

// ItemReference resolves a Specifier against a Context and reports
// resolution transitions. It is the mechanism that lets connections be
// constructed before their endpoints exist and reconnect automatically
// when a referenced object is reloaded or re-registered.
//
// OnItemRegistered fires when resolution transitions from absent to
// resolved; OnItemUnregistered fires on the reverse transition. Each
// fires exactly once per transition. Resolution is a direct map access.
type ItemReference struct {
	ctx  *Context
	spec Specifier
	item *Object

	OnItemRegistered   func(*Object)
	OnItemUnregistered func(*Object)
}

// Item returns the currently resolved object, or nil. A dangling
// specifier resolves to nil rather than failing.
func (r *ItemReference) Item() *Object { return r.item }

// Specifier returns the stored specifier.
func (r *ItemReference) Specifier() Specifier { return r.spec }

// SetItem resolves the reference directly to item and stores its
// specifier. No transition callback fires; callers configuring a known
// item wire their own state immediately.
func (r *ItemReference) SetItem(item *Object) {
	r.ctx.unwatch(r.spec.id, r)
	r.item = item
	r.spec = SpecifierFor(item)
	r.ctx.watch(r.spec.id, r)
}

// SetSpecifier rebinds the reference to a new identifier and re-evaluates
// resolution. If the reference was resolved to a different object,
// OnItemUnregistered fires for it; if the new identifier is currently
// registered, OnItemRegistered fires. No callback fires when the
// resolution state does not change.
func (r *ItemReference) SetSpecifier(spec Specifier) {
	if spec == r.spec {
		return
	}
	r.ctx.unwatch(r.spec.id, r)
	r.spec = spec
	r.ctx.watch(r.spec.id, r)

	if r.item != nil && SpecifierFor(r.item) != spec {
		old := r.item
		r.item = nil
		if r.OnItemUnregistered != nil {
			r.OnItemUnregistered(old)
		}
	}
	if r.item == nil {
		if o, ok := r.ctx.Get(spec.id); ok {
			r.item = o
			if r.OnItemRegistered != nil {
				r.OnItemRegistered(o)
			}
		}
	}
}

// Close detaches the reference from the registry. No callback fires after
// Close returns.
func (r *ItemReference) Close() {
	r.ctx.unwatch(r.spec.id, r)
	r.OnItemRegistered = nil
	r.OnItemUnregistered = nil
	r.item = nil
}

// itemRegistered is the registry fan-out path for a matching uuid.
func (r *ItemReference) itemRegistered(o *Object) {
	if r.item != nil {
		return
	}
	r.item = o
	if r.OnItemRegistered != nil {
		r.OnItemRegistered(o)
	}
}

// itemUnregistered is the registry fan-out path for a matching uuid.
func (r *ItemReference) itemUnregistered(o *Object) {
	if r.item != o {
		return
	}
	r.item = nil
	if r.OnItemUnregistered != nil {
		r.OnItemUnregistered(o)
	}
}
