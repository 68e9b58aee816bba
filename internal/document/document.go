// Package document is the project scope of the entity graph: a root
// persistent object owning items and connections, with save/load against
// a SQLite-backed document store. Loading a document registers every
// object it owns, which is what re-activates dormant connections.
package document

import (
	"fmt"

	"github.com/lumascope/entgraph/internal/connect"
	"github.com/lumascope/entgraph/internal/entity"
	"github.com/lumascope/entgraph/internal/record"
	"github.com/lumascope/entgraph/internal/schema"
)

// Entity type and field names of the built-in document model. Items are
// polymorphic: applications extend the "item" base with their own types.
const (
	DocumentType = "document"
	ItemBaseType = "item"

	FieldTitle       = "title"
	FieldItems       = "items"
	FieldConnections = "connections"
)

// DefineEntities declares the built-in document entities, including the
// connection types. Call once per schema before creating documents.
func DefineEntities(s *schema.Schema) error {
	if _, err := s.Define(ItemBaseType, "", nil); err != nil {
		return err
	}
	if err := connect.DefineEntities(s); err != nil {
		return err
	}
	_, err := s.Define(DocumentType, "", []schema.Field{
		{Name: FieldTitle, Spec: schema.Prop(schema.String, "")},
		{Name: FieldItems, Spec: schema.Array(schema.Component(ItemBaseType))},
		{Name: FieldConnections, Spec: schema.Array(schema.Component("connection"))},
	})
	return err
}

// Document owns one entity graph: a registered root object whose items
// and connections arrays hold everything the document serializes.
type Document struct {
	ctx         *entity.Context
	root        *entity.Object
	connections []*connect.Connection
}

// New creates an empty document and registers its root, so that items
// and connections register as they are attached.
func New(ctx *entity.Context) (*Document, error) {
	root, err := ctx.Create(DocumentType)
	if err != nil {
		return nil, err
	}
	if err := ctx.Register(root); err != nil {
		return nil, err
	}
	return &Document{ctx: ctx, root: root}, nil
}

// Context returns the registry scoping this document.
func (d *Document) Context() *entity.Context { return d.ctx }

// Root returns the root persistent object.
func (d *Document) Root() *entity.Object { return d.root }

// Items returns the document's top-level items.
func (d *Document) Items() []*entity.Object { return d.root.Items(FieldItems) }

// Connections returns the document's live connections.
func (d *Document) Connections() []*connect.Connection {
	return append([]*connect.Connection(nil), d.connections...)
}

// AddItem attaches a top-level item; the item and its component subtree
// enter the registry.
func (d *Document) AddItem(item *entity.Object) {
	d.root.AppendItem(FieldItems, item)
}

// RemoveItem detaches a top-level item and closes it. Connections
// referencing it observe the unregistration and go dormant.
func (d *Document) RemoveItem(item *entity.Object) {
	d.root.RemoveItem(FieldItems, item)
	item.Close()
}

// AddConnection attaches a connection so it persists with the document.
func (d *Document) AddConnection(c *connect.Connection) {
	d.root.AppendItem(FieldConnections, c.Object())
	d.connections = append(d.connections, c)
}

// RemoveConnection detaches a connection and closes it.
func (d *Document) RemoveConnection(c *connect.Connection) {
	d.root.RemoveItem(FieldConnections, c.Object())
	for i, existing := range d.connections {
		if existing == c {
			d.connections = append(d.connections[:i], d.connections[i+1:]...)
			break
		}
	}
	c.Close()
}

// WriteToRecord serializes the whole document.
func (d *Document) WriteToRecord() record.Record {
	return d.root.WriteToRecord()
}

// Read reconstructs a document from its serialized record: the root
// hydrates recursively, the entire tree registers, and each persisted
// connection is rewired from its discriminator. Connections whose
// endpoints loaded with the document activate immediately; the rest stay
// dormant until their targets register.
func Read(ctx *entity.Context, rec record.Record) (*Document, error) {
	root, err := entity.Build(ctx, rec)
	if err != nil {
		return nil, err
	}
	if root.Type().Name() != DocumentType {
		return nil, &record.ReadError{Key: record.KeyType, Message: fmt.Sprintf("expected %q record, got %q", DocumentType, root.Type().Name())}
	}
	if err := ctx.RegisterTree(root); err != nil {
		return nil, err
	}
	d := &Document{ctx: ctx, root: root}
	for _, obj := range root.Items(FieldConnections) {
		c, err := connect.FromObject(obj)
		if err != nil {
			return nil, err
		}
		d.connections = append(d.connections, c)
	}
	return d, nil
}

// Close tears the document down: connections first (releasing their
// listeners), then the root and its subtree. Idempotent.
func (d *Document) Close() {
	for _, c := range d.connections {
		c.Close()
	}
	d.connections = nil
	d.root.Close()
}
