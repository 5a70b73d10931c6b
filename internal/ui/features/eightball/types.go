// Package eightball provides the 8-ball page, its live update stream and
// the endpoints that shake the ball and change settings.
package eightball

import (
	"github.com/leapstack-labs/magic8ball/internal/settings"
)

// SettingsSignals is what the page posts back when a control changes.
// Missing fields are left alone.
type SettingsSignals struct {
	ShakeDetection *bool   `json:"shakeDetection"`
	TextToSpeech   *bool   `json:"textToSpeech"`
	SelectedVoice  *string `json:"selectedVoice" validate:"omitempty,max=256"`
}

// ShakeTriggers are the accepted values of the shake endpoint's trigger parameter.
var ShakeTriggers = []string{"click", "shake"}

// signalNames maps store fields onto page signal names.
var signalNames = map[settings.Field]string{
	settings.FieldShakeDetection: "shakeDetection",
	settings.FieldTextToSpeech:   "textToSpeech",
	settings.FieldSelectedVoice:  "selectedVoice",
}

// SignalName returns the page signal bound to field.
func SignalName(field settings.Field) string {
	return signalNames[field]
}

// changes lists the fields of sig that differ from current, with their new values.
func (sig SettingsSignals) changes(current settings.Preferences) []settings.Event {
	var out []settings.Event
	if sig.ShakeDetection != nil && *sig.ShakeDetection != current.ShakeDetection {
		out = append(out, settings.Event{Field: settings.FieldShakeDetection, Value: *sig.ShakeDetection})
	}
	if sig.TextToSpeech != nil && *sig.TextToSpeech != current.TextToSpeech {
		out = append(out, settings.Event{Field: settings.FieldTextToSpeech, Value: *sig.TextToSpeech})
	}
	if sig.SelectedVoice != nil && *sig.SelectedVoice != current.SelectedVoice {
		out = append(out, settings.Event{Field: settings.FieldSelectedVoice, Value: *sig.SelectedVoice})
	}
	return out
}
