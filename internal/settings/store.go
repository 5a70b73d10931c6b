// Package settings holds the user preferences shared by every part of the
// 8-ball UI: shake detection, text-to-speech and the selected voice.
//
// A Store is an explicit state holder. The composition root creates it and
// hands it to consumers; nothing in this package is a global.
package settings

import (
	"errors"
	"fmt"
	"sync"
)

// Field identifies one preference.
type Field string

// Preference fields.
const (
	FieldShakeDetection Field = "shake_detection"
	FieldTextToSpeech   Field = "text_to_speech"
	FieldSelectedVoice  Field = "selected_voice"
)

// Fields lists every preference in notification order.
var Fields = []Field{FieldShakeDetection, FieldTextToSpeech, FieldSelectedVoice}

var (
	// ErrUnknownField is returned for a field name the store does not hold.
	ErrUnknownField = errors.New("unknown settings field")
	// ErrInvalidValue is returned when a value has the wrong type for its field.
	ErrInvalidValue = errors.New("invalid settings value")
)

// ParseField converts a field name into a Field.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Preferences is a point-in-time copy of a Store.
type Preferences struct {
	ShakeDetection bool   `json:"shakeDetection"`
	TextToSpeech   bool   `json:"textToSpeech"`
	SelectedVoice  string `json:"selectedVoice"` // empty means no voice selected
}

// DefaultPreferences returns the values a fresh store starts with.
func DefaultPreferences() Preferences {
	return Preferences{}
}

// Get returns the value of field in p.
func (p Preferences) Get(field Field) (any, error) {
	switch field {
	case FieldShakeDetection:
		return p.ShakeDetection, nil
	case FieldTextToSpeech:
		return p.TextToSpeech, nil
	case FieldSelectedVoice:
		return p.SelectedVoice, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// Event is a tagged change notification.
type Event struct {
	Field Field
	Value any
}

// Store owns one observable cell per preference.
type Store struct {
	ShakeDetection *Cell[bool]
	TextToSpeech   *Cell[bool]
	// SelectedVoice holds a platform voice identifier. It is stored as given;
	// checking it against the voices the browser offers is left to the
	// speech-synthesis consumer.
	SelectedVoice *Cell[string]
}

// NewStore returns a store holding DefaultPreferences.
func NewStore() *Store {
	return NewStoreWith(DefaultPreferences())
}

// NewStoreWith returns a store seeded with p.
func NewStoreWith(p Preferences) *Store {
	return &Store{
		ShakeDetection: NewCell(p.ShakeDetection),
		TextToSpeech:   NewCell(p.TextToSpeech),
		SelectedVoice:  NewCell(p.SelectedVoice),
	}
}

// Get returns the current value of field.
func (s *Store) Get(field Field) (any, error) {
	switch field {
	case FieldShakeDetection:
		return s.ShakeDetection.Get(), nil
	case FieldTextToSpeech:
		return s.TextToSpeech.Get(), nil
	case FieldSelectedVoice:
		return s.SelectedVoice.Get(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// Set replaces the value of field. Boolean fields take a bool; the voice
// takes a string, a *string or nil (nil clears the selection).
func (s *Store) Set(field Field, value any) error {
	switch field {
	case FieldShakeDetection, FieldTextToSpeech:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %s wants bool, got %T", ErrInvalidValue, field, value)
		}
		if field == FieldShakeDetection {
			s.ShakeDetection.Set(b)
		} else {
			s.TextToSpeech.Set(b)
		}
		return nil
	case FieldSelectedVoice:
		switch v := value.(type) {
		case nil:
			s.SelectedVoice.Set("")
		case string:
			s.SelectedVoice.Set(v)
		case *string:
			if v == nil {
				s.SelectedVoice.Set("")
			} else {
				s.SelectedVoice.Set(*v)
			}
		default:
			return fmt.Errorf("%w: %s wants string, got %T", ErrInvalidValue, field, value)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// Subscribe registers fn for changes to a single field.
func (s *Store) Subscribe(field Field, fn func(any)) (Unsubscribe, error) {
	switch field {
	case FieldShakeDetection:
		return s.ShakeDetection.Subscribe(func(v bool) { fn(v) }), nil
	case FieldTextToSpeech:
		return s.TextToSpeech.Subscribe(func(v bool) { fn(v) }), nil
	case FieldSelectedVoice:
		return s.SelectedVoice.Subscribe(func(v string) { fn(v) }), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
}

// Watch subscribes fn to every field. fn is called once per field straight
// away, in Fields order, and then for every later change.
func (s *Store) Watch(fn func(Event)) Unsubscribe {
	unsubs := make([]Unsubscribe, 0, len(Fields))
	for _, f := range Fields {
		field := f
		unsub, _ := s.Subscribe(field, func(v any) {
			fn(Event{Field: field, Value: v})
		})
		unsubs = append(unsubs, unsub)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, u := range unsubs {
				u()
			}
		})
	}
}

// Subscribers reports the live subscriptions across every field.
func (s *Store) Subscribers() int {
	return s.ShakeDetection.Subscribers() + s.TextToSpeech.Subscribers() + s.SelectedVoice.Subscribers()
}

// Snapshot copies the current values.
func (s *Store) Snapshot() Preferences {
	return Preferences{
		ShakeDetection: s.ShakeDetection.Get(),
		TextToSpeech:   s.TextToSpeech.Get(),
		SelectedVoice:  s.SelectedVoice.Get(),
	}
}

// Restore sets every field from p, notifying subscribers of each.
func (s *Store) Restore(p Preferences) {
	s.ShakeDetection.Set(p.ShakeDetection)
	s.TextToSpeech.Set(p.TextToSpeech)
	s.SelectedVoice.Set(p.SelectedVoice)
}
