package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoMatch       = errors.New("capture: no matching channel")
	ErrShapeMismatch = errors.New("capture: body does not have the channel's shape")
)

// Matcher classifies responses against an ordered rule set. The first rule
// whose URL substring matches decides the channel; later rules are not tried.
type Matcher struct {
	rules []Rule
}

// NewMatcher returns a Matcher over rules, in order.
func NewMatcher(rules []Rule) *Matcher {
	return &Matcher{rules: append([]Rule(nil), rules...)}
}

// Channels returns the distinct channels of the rule set, in rule order.
func (m *Matcher) Channels() []Channel {
	out := make([]Channel, 0, len(m.rules))
	seen := make(map[Channel]bool, len(m.rules))
	for _, r := range m.rules {
		if !seen[r.Channel] {
			seen[r.Channel] = true
			out = append(out, r.Channel)
		}
	}
	return out
}

// Wants reports whether any rule's URL substring matches url. It lets the
// network listener skip fetching bodies nobody will classify.
func (m *Matcher) Wants(url string) bool {
	_, ok := m.rule(url)
	return ok
}

// Classify maps a response to a channel and its decoded body.
func (m *Matcher) Classify(url string, body []byte) (Channel, json.RawMessage, error) {
	r, ok := m.rule(url)
	if !ok {
		return "", nil, ErrNoMatch
	}
	decode := r.Decode
	if decode == nil {
		return "", nil, fmt.Errorf("capture: rule %s has no decoder", r.Channel)
	}
	v, err := decode(body)
	if err != nil {
		return "", nil, fmt.Errorf("capture: %s: %w", r.Channel, err)
	}
	if r.Shape != nil && !r.Shape(v) {
		return "", nil, fmt.Errorf("%w: %s", ErrShapeMismatch, r.Channel)
	}
	return r.Channel, v, nil
}

func (m *Matcher) rule(url string) (Rule, bool) {
	for _, r := range m.rules {
		if strings.Contains(url, r.URLContains) {
			return r, true
		}
	}
	return Rule{}, false
}
