package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// KVEntry is one value in the bounded key/value area holding the stored
// session and the learning queue snapshot.
type KVEntry struct {
	ent.Schema
}

func (KVEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("key").
			NotEmpty().
			Unique().
			Immutable().
			Comment("vidquiz.session or vidquiz.queue"),
		field.Bytes("value").
			Comment("JSON document"),
		field.Time("saved_at").
			Comment("UTC time of the last write, used for expiry"),
	}
}
