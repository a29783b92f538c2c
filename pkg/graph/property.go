package graph

import (
	"fmt"
	"math"

	"github.com/vanderheijden86/graphview/pkg/event"
)

// PropertyType is the value type of a property cell.
type PropertyType string

const (
	TypeNumber  PropertyType = "number"
	TypeString  PropertyType = "string"
	TypeBoolean PropertyType = "boolean"
	TypeObject  PropertyType = "object"
	TypeEvent   PropertyType = "event"
)

// Schema describes how a property is presented and constrained.
// Nil pointer fields are "not set".
type Schema struct {
	Min       *float64
	Max       *float64
	Step      *float64
	Speed     *float64
	Precision *int
	Bar       bool
	Options   []string
	Event     bool
}

// HasBounds reports whether both Min and Max are set.
func (s Schema) HasBounds() bool {
	return s.Min != nil && s.Max != nil
}

// Float returns a pointer to v, for filling optional schema fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for filling optional schema fields.
func Int(v int) *int { return &v }

// wholeIndex is the link slot used for links to the entire value.
const wholeIndex = -1

// Property is a named, typed value cell owned by a component.
//
// Values are float64, string, bool or any for scalar cells and []float64,
// []string or []bool for vector cells. Vector values are copied on read and
// write so callers always perform an explicit read-modify-write.
type Property struct {
	name      string
	typ       PropertyType
	schema    Schema
	value     any
	def       any
	input     bool
	component *Component

	inLinks  map[int]int
	outLinks map[int]int

	changed bool

	valueEvents  event.Emitter[struct{}]
	changeEvents event.Emitter[struct{}]
}

// NewProperty creates a property whose current value is a copy of def.
func NewProperty(name string, typ PropertyType, schema Schema, def any, input bool) *Property {
	if typ == TypeNumber {
		def = normalizeNumber(def)
	}
	return &Property{
		name:     name,
		typ:      typ,
		schema:   schema,
		value:    cloneValue(def),
		def:      cloneValue(def),
		input:    input,
		inLinks:  make(map[int]int),
		outLinks: make(map[int]int),
	}
}

func (p *Property) Name() string       { return p.name }
func (p *Property) Type() PropertyType { return p.typ }
func (p *Property) Schema() Schema     { return p.schema }
func (p *Property) IsInput() bool      { return p.input }

// Component returns the owning component, or nil for a detached property.
func (p *Property) Component() *Component { return p.component }

// Value returns the current value. Vector values are returned as copies.
func (p *Property) Value() any {
	return cloneValue(p.value)
}

// Default returns a copy of the default value.
func (p *Property) Default() any {
	return cloneValue(p.def)
}

// Changed is true while value notifications for a write are being delivered.
func (p *Property) Changed() bool {
	return p.changed
}

// SetValue replaces the value and notifies value listeners.
func (p *Property) SetValue(v any) {
	if p.typ == TypeNumber {
		v = normalizeNumber(v)
	}
	p.value = cloneValue(v)
	p.Set()
}

// Set notifies value listeners without changing the value. For event
// properties this is the trigger action.
func (p *Property) Set() {
	p.changed = true
	p.valueEvents.Emit(struct{}{})
	p.changed = false
}

// Reset writes the default value.
func (p *Property) Reset() {
	p.SetValue(p.def)
}

// SetSchema replaces the schema and notifies metadata listeners.
func (p *Property) SetSchema(s Schema) {
	p.schema = s
	p.changeEvents.Emit(struct{}{})
}

// IsEvent reports whether the property is a trigger rather than a value.
func (p *Property) IsEvent() bool {
	return p.typ == TypeEvent || p.schema.Event
}

// IsMulti reports whether the value is a vector.
func (p *Property) IsMulti() bool {
	return p.Elements() > 0
}

// Elements returns the vector length, or 0 for scalar values.
func (p *Property) Elements() int {
	switch v := p.value.(type) {
	case []float64:
		return len(v)
	case []string:
		return len(v)
	case []bool:
		return len(v)
	}
	return 0
}

// HasInLinks reports whether an upstream link drives the property. A
// negative index asks about any link at all.
func (p *Property) HasInLinks(index int) bool {
	return hasLinks(p.inLinks, index)
}

// HasOutLinks reports whether the property drives a downstream link.
func (p *Property) HasOutLinks(index int) bool {
	return hasLinks(p.outLinks, index)
}

// AddInLink records an upstream link at index (negative for the whole value).
func (p *Property) AddInLink(index int) { p.adjustLinks(p.inLinks, index, 1) }

// RemoveInLink removes an upstream link at index.
func (p *Property) RemoveInLink(index int) { p.adjustLinks(p.inLinks, index, -1) }

// AddOutLink records a downstream link at index.
func (p *Property) AddOutLink(index int) { p.adjustLinks(p.outLinks, index, 1) }

// RemoveOutLink removes a downstream link at index.
func (p *Property) RemoveOutLink(index int) { p.adjustLinks(p.outLinks, index, -1) }

func (p *Property) adjustLinks(links map[int]int, index, delta int) {
	if index < 0 {
		index = wholeIndex
	}
	n := links[index] + delta
	if n <= 0 {
		delete(links, index)
	} else {
		links[index] = n
	}
	p.changeEvents.Emit(struct{}{})
}

func hasLinks(links map[int]int, index int) bool {
	if index < 0 {
		return len(links) > 0
	}
	return links[index] > 0 || links[wholeIndex] > 0
}

// ValidatedValue returns the option index selected by the value, clamped
// into the options range. Returns 0 when there are no options.
func (p *Property) ValidatedValue() int {
	n := len(p.schema.Options)
	if n == 0 {
		return 0
	}
	f, ok := ToFloat(p.value)
	if !ok || math.IsNaN(f) {
		return 0
	}
	i := int(math.Trunc(math.Max(0, math.Min(f, float64(n-1)))))
	return i
}

// OptionText returns the label of the selected option.
func (p *Property) OptionText() string {
	if len(p.schema.Options) == 0 {
		return ""
	}
	return p.schema.Options[p.ValidatedValue()]
}

// OnValue registers fn for value notifications.
func (p *Property) OnValue(fn func()) event.Subscription {
	return p.valueEvents.On(func(struct{}) { fn() })
}

// OnChange registers fn for metadata notifications (schema and links).
func (p *Property) OnChange(fn func()) event.Subscription {
	return p.changeEvents.On(func(struct{}) { fn() })
}

// ListenerCount returns the number of registered value and change handlers.
func (p *Property) ListenerCount() int {
	return p.valueEvents.Len() + p.changeEvents.Len()
}

// String returns "Component.property", using the component name or type.
func (p *Property) String() string {
	if p.component == nil {
		return p.name
	}
	owner := p.component.Name
	if owner == "" {
		owner = p.component.Type
	}
	return fmt.Sprintf("%s.%s", owner, p.name)
}

// ToFloat converts numeric values to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// normalizeNumber converts integer scalars and []any / []int vectors into
// float64 forms so number cells always hold float64 or []float64.
func normalizeNumber(v any) any {
	if f, ok := ToFloat(v); ok {
		return f
	}
	switch vec := v.(type) {
	case []int:
		out := make([]float64, len(vec))
		for i, n := range vec {
			out[i] = float64(n)
		}
		return out
	case []any:
		out := make([]float64, len(vec))
		for i, n := range vec {
			out[i], _ = ToFloat(n)
		}
		return out
	}
	return v
}

func cloneValue(v any) any {
	switch vec := v.(type) {
	case []float64:
		return append([]float64(nil), vec...)
	case []string:
		return append([]string(nil), vec...)
	case []bool:
		return append([]bool(nil), vec...)
	}
	return v
}
