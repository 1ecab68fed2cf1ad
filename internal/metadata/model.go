package metadata

// Model describes one logical entity, backed 1:1 by a SQL table named by its
// slug. Fields holds live kind instances keyed by field slug, in creation
// order.
type Model struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	Position    int64
	Nested      bool
	Fields      *FieldSet
}

// FieldSet is an insertion-ordered map from field slug to kind instance.
type FieldSet struct {
	order []string
	kinds map[string]Kind
}

func NewFieldSet() *FieldSet {
	return &FieldSet{kinds: make(map[string]Kind)}
}

// Add upserts a kind under its descriptor slug, preserving first-seen order.
func (fs *FieldSet) Add(k Kind) {
	slug := k.Descriptor().Slug
	if _, ok := fs.kinds[slug]; !ok {
		fs.order = append(fs.order, slug)
	}
	fs.kinds[slug] = k
}

// Get returns the kind for a slug, or nil.
func (fs *FieldSet) Get(slug string) Kind {
	return fs.kinds[slug]
}

// Len returns the number of fields.
func (fs *FieldSet) Len() int {
	return len(fs.order)
}

// Slugs returns field slugs in insertion order.
func (fs *FieldSet) Slugs() []string {
	out := make([]string, len(fs.order))
	copy(out, fs.order)
	return out
}

// Each calls fn for every field in insertion order, stopping on error.
func (fs *FieldSet) Each(fn func(slug string, k Kind) error) error {
	for _, slug := range fs.order {
		if err := fn(slug, fs.kinds[slug]); err != nil {
			return err
		}
	}
	return nil
}

// ByID returns the kind whose descriptor has the given id, or nil.
func (fs *FieldSet) ByID(id int64) Kind {
	for _, slug := range fs.order {
		if fs.kinds[slug].Descriptor().ID == id {
			return fs.kinds[slug]
		}
	}
	return nil
}

// Field returns the kind for a slug, or nil.
func (m *Model) Field(slug string) Kind {
	if m.Fields == nil {
		return nil
	}
	return m.Fields.Get(slug)
}

// ModelFromContent builds a Model descriptor (without fields) from a row map.
func ModelFromContent(c Content) *Model {
	return &Model{
		ID:          ToInt64(c["id"]),
		Name:        ToString(c["name"]),
		Slug:        ToString(c["slug"]),
		Description: ToString(c["description"]),
		Position:    ToInt64(c["position"]),
		Nested:      ToBool(c["nested"]),
		Fields:      NewFieldSet(),
	}
}
