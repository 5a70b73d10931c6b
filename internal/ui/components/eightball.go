// Package components renders the 8-ball UI tree.
//
// Components are written in eightball.templ; run "templ generate" after
// editing it. The markup is bound to datastar signals, which the server
// keeps in step with the session's settings store over the /updates stream.
package components

import (
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/magic8ball/internal/settings"
)

// Placeholder is shown in the ball before the first answer.
const Placeholder = "Ask a question, then tap or shake"

// Signals is the datastar signal set the page works with.
type Signals struct {
	ShakeDetection bool   `json:"shakeDetection"`
	TextToSpeech   bool   `json:"textToSpeech"`
	SelectedVoice  string `json:"selectedVoice"`
	Answer         string `json:"answer"`
	Shaking        bool   `json:"shaking"`
}

// SignalsFor maps preferences onto page signals.
func SignalsFor(p settings.Preferences) Signals {
	return Signals{
		ShakeDetection: p.ShakeDetection,
		TextToSpeech:   p.TextToSpeech,
		SelectedVoice:  p.SelectedVoice,
	}
}

// Props configures the root tree.
type Props struct {
	// Base is the URL prefix the app is served under, with a trailing slash.
	Base    string
	Initial settings.Preferences
	IsDev   bool
}

// signalsJSON encodes the initial page signals for the data-signals attribute.
func signalsJSON(p settings.Preferences) (string, error) {
	b, err := json.Marshal(SignalsFor(p))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func action(method, base, path string) string {
	return fmt.Sprintf("@%s('%s%s')", method, base, path)
}
