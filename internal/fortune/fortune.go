// Package fortune picks Magic 8 Ball answers.
package fortune

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DefaultAnswers is the stock set of replies.
var DefaultAnswers = []string{
	"The answer is unclear",
	"Uncertain at this time",
	"I have no idea",
	"Absolutely yes!",
	"Ask again later",
	"Emphatically No!",
	"Signs point to yes, definitely!",
	"My sources say no, but they've been wrong before.",
	"Reply hazy, try again after a coffee.",
	"It is decidedly so.",
	"Outlook not so good, maybe ask your cat?",
	"You may rely on it.",
	"Error 404: Future not found.",
}

var (
	// ErrEmptyQuestion is returned by Ask for a blank question.
	ErrEmptyQuestion = errors.New("you must ask a question")
	// ErrNoAnswers is returned by New when given nothing to choose from.
	ErrNoAnswers = errors.New("no answers configured")
)

// Answer is one reading of the ball.
type Answer struct {
	Text     string    `json:"text"`
	Question string    `json:"question,omitempty"`
	At       time.Time `json:"at"`
}

// Teller chooses answers uniformly at random. It is safe for concurrent use.
type Teller struct {
	answers []string

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// Option configures a Teller.
type Option func(*Teller)

// WithRand sets the random source, for reproducible picks.
func WithRand(r *rand.Rand) Option {
	return func(t *Teller) { t.rng = r }
}

// WithClock sets the time source used to stamp answers.
func WithClock(now func() time.Time) Option {
	return func(t *Teller) { t.now = now }
}

// New creates a Teller over answers. Blank entries are dropped.
func New(answers []string, opts ...Option) (*Teller, error) {
	clean := make([]string, 0, len(answers))
	for _, a := range answers {
		if a = strings.TrimSpace(a); a != "" {
			clean = append(clean, a)
		}
	}
	if len(clean) == 0 {
		return nil, ErrNoAnswers
	}

	t := &Teller{
		answers: clean,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // not security sensitive
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Shake returns a random answer without a question, as when the ball is
// clicked or shaken.
func (t *Teller) Shake() Answer {
	t.mu.Lock()
	text := t.answers[t.rng.IntN(len(t.answers))]
	t.mu.Unlock()
	return Answer{Text: text, At: t.now()}
}

// Ask answers a question. Blank questions are rejected. The question is
// echoed back in NFC form without its trailing question marks.
func (t *Teller) Ask(question string) (Answer, error) {
	question = norm.NFC.String(strings.TrimSpace(question))
	if question == "" {
		return Answer{}, ErrEmptyQuestion
	}
	a := t.Shake()
	a.Question = strings.TrimRight(question, "?")
	return a, nil
}

// Answers returns a copy of the configured answers.
func (t *Teller) Answers() []string {
	out := make([]string, len(t.answers))
	copy(out, t.answers)
	return out
}
