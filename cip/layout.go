package cip

import "sync"

// FieldDefinition describes one field of a table layout
type FieldDefinition struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Layout is the ordered field schema of a table
type Layout struct {
	Fields []FieldDefinition

	mu    sync.Mutex
	byKey map[string]FieldDefinition
}

// NewLayout wraps a list of field definitions
func NewLayout(fields []FieldDefinition) *Layout {
	return &Layout{
		Fields: fields,
		byKey:  make(map[string]FieldDefinition),
	}
}

// LookupField finds the definition for key. Hits are remembered.
func (l *Layout) LookupField(key string) (FieldDefinition, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if field, ok := l.byKey[key]; ok {
		return field, true
	}

	for _, field := range l.Fields {
		if field.Key == key {
			l.byKey[key] = field
			return field, true
		}
	}

	return FieldDefinition{}, false
}

// FieldByName finds the first field with the given human name
func (l *Layout) FieldByName(name string) (FieldDefinition, bool) {
	for _, field := range l.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldDefinition{}, false
}

// Keys returns the field keys in layout order
func (l *Layout) Keys() []string {
	keys := make([]string, 0, len(l.Fields))
	for _, field := range l.Fields {
		keys = append(keys, field.Key)
	}
	return keys
}
