package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumascope/entgraph/internal/schema"
)

// IDGenerator produces identities for new instances.
// Implemented by UUIDGenerator (production) and FixedGenerator (tests).
type IDGenerator interface {
	NewUUID() uuid.UUID
}

// UUIDGenerator generates random RFC 4122 UUIDs.
type UUIDGenerator struct{}

// NewUUID returns a fresh random UUID.
// Panics if generation fails (should never happen in practice).
func (UUIDGenerator) NewUUID() uuid.UUID {
	return uuid.Must(uuid.NewRandom())
}

// FixedGenerator returns predetermined UUIDs for deterministic tests and
// golden serialization comparison.
type FixedGenerator struct {
	ids []uuid.UUID
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
// The ids are parsed from their canonical string form.
//
// Panics on a malformed id, and Generate panics once all ids are
// consumed: both are test misconfiguration, caught fail-fast.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	parsed := make([]uuid.UUID, len(ids))
	for i, s := range ids {
		parsed[i] = uuid.MustParse(s)
	}
	return &FixedGenerator{ids: parsed}
}

// NewUUID returns the next predetermined id.
func (g *FixedGenerator) NewUUID() uuid.UUID {
	if g.idx >= len(g.ids) {
		panic("entity: FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// Context is the runtime registry for one document scope. It maps
// identifiers to live objects and notifies watching ItemReferences as
// matching identifiers come into and go out of scope.
//
// Not safe for concurrent use; see the package comment.
type Context struct {
	schema   *schema.Schema
	objects  map[uuid.UUID]*Object
	watchers map[uuid.UUID][]*ItemReference
	idGen    IDGenerator
	nowFn    func() time.Time
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithIDGenerator substitutes the identity source, typically a
// FixedGenerator in tests.
func WithIDGenerator(g IDGenerator) ContextOption {
	return func(c *Context) { c.idGen = g }
}

// WithNow substitutes the clock used for modification timestamps.
func WithNow(now func() time.Time) ContextOption {
	return func(c *Context) { c.nowFn = now }
}

// NewContext creates an empty registry over the given schema.
func NewContext(s *schema.Schema, opts ...ContextOption) *Context {
	c := &Context{
		schema:   s,
		objects:  make(map[uuid.UUID]*Object),
		watchers: make(map[uuid.UUID][]*ItemReference),
		idGen:    UUIDGenerator{},
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schema returns the schema this context creates instances from.
func (c *Context) Schema() *schema.Schema { return c.schema }

// Create allocates a new unattached instance of the named entity type
// with a fresh uuid and a current modification timestamp. The instance
// is not registered until it is attached to a registered container or
// passed to Register explicitly.
func (c *Context) Create(typeName string) (*Object, error) {
	typ, ok := c.schema.Lookup(typeName)
	if !ok {
		return nil, &schema.Error{Entity: typeName, Message: "unknown entity type"}
	}
	return newObject(c, typ), nil
}

// MustCreate is Create panicking on error; for fixture construction.
func (c *Context) MustCreate(typeName string) *Object {
	o, err := c.Create(typeName)
	if err != nil {
		panic(err)
	}
	return o
}

// Get resolves an identifier to its live object. Absence is an ordinary
// state, not an error: dangling specifiers are tolerated indefinitely.
func (c *Context) Get(id uuid.UUID) (*Object, bool) {
	o, ok := c.objects[id]
	return o, ok
}

// Register adds an object to the registry and notifies every reference
// currently watching its identifier. Registering an identifier twice is
// an error.
func (c *Context) Register(o *Object) error {
	if existing, ok := c.objects[o.id]; ok {
		if existing == o {
			return fmt.Errorf("entity: %s already registered", o.id)
		}
		return fmt.Errorf("entity: duplicate registration for %s", o.id)
	}
	c.objects[o.id] = o
	o.registered = true
	for _, r := range c.watcherSnapshot(o.id) {
		r.itemRegistered(o)
	}
	return nil
}

// Unregister removes an object from the registry and notifies watchers.
// Unregistering an object that is not registered is a no-op.
func (c *Context) Unregister(o *Object) {
	if existing, ok := c.objects[o.id]; !ok || existing != o {
		return
	}
	delete(c.objects, o.id)
	o.registered = false
	for _, r := range c.watcherSnapshot(o.id) {
		r.itemUnregistered(o)
	}
}

// RegisterTree registers an object and its owned component subtree,
// depth-first from the root. Used when a hydrated graph enters document
// scope. Objects already registered are skipped.
func (c *Context) RegisterTree(o *Object) error {
	if !o.registered {
		if err := c.Register(o); err != nil {
			return err
		}
	}
	for _, child := range o.ownedComponents() {
		if err := c.RegisterTree(child); err != nil {
			return err
		}
	}
	return nil
}

// UnregisterTree unregisters an owned component subtree, children first.
func (c *Context) UnregisterTree(o *Object) {
	for _, child := range o.ownedComponents() {
		c.UnregisterTree(child)
	}
	c.Unregister(o)
}

// watcherSnapshot copies the watcher list so callbacks may watch or
// unwatch during the fan-out.
func (c *Context) watcherSnapshot(id uuid.UUID) []*ItemReference {
	ws := c.watchers[id]
	if len(ws) == 0 {
		return nil
	}
	return append([]*ItemReference(nil), ws...)
}

func (c *Context) watch(id uuid.UUID, r *ItemReference) {
	if id == uuid.Nil {
		return
	}
	c.watchers[id] = append(c.watchers[id], r)
}

func (c *Context) unwatch(id uuid.UUID, r *ItemReference) {
	ws := c.watchers[id]
	for i, w := range ws {
		if w == r {
			ws = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	if len(ws) == 0 {
		delete(c.watchers, id)
	} else {
		c.watchers[id] = ws
	}
}

// NewItemReference creates a reference bound to this registry, initially
// resolved to item (which may be nil).
func (c *Context) NewItemReference(item *Object) *ItemReference {
	r := &ItemReference{ctx: c}
	if item != nil {
		r.SetItem(item)
	}
	return r
}

func (c *Context) now() time.Time { return c.nowFn() }
