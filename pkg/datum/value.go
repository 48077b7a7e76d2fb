package datum

// FieldValue is one decoded record field.
type FieldValue struct {
	Name  string
	Value interface{}
}

// Record is a decoded record. Fields keep the order they are declared in the
// schema.
type Record struct {
	name   string
	fields []FieldValue
}

// NewRecord creates an empty record of the named type.
func NewRecord(name string, capacity int) *Record {
	return &Record{name: name, fields: make([]FieldValue, 0, capacity)}
}

// Name returns the full name of the record type.
func (r *Record) Name() string {
	return r.name
}

// Set appends a field value. Callers set fields in schema order.
func (r *Record) Set(name string, value interface{}) {
	r.fields = append(r.fields, FieldValue{Name: name, Value: value})
}

// Fields returns the field values in schema order.
func (r *Record) Fields() []FieldValue {
	return r.fields
}

// Get returns the value of the named field.
func (r *Record) Get(name string) (interface{}, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.fields)
}

// Union is a decoded union value together with the branch it was encoded as.
type Union struct {
	Index int
	Type  string
	Value interface{}
}

// Enum is a decoded enum value.
type Enum struct {
	Index  int
	Symbol string
}

// Fixed is a decoded fixed-size value.
type Fixed []byte
