// Package topic defines the event type identifiers used as registry keys
// by the event bus.
package topic

import (
	"fmt"
	"strings"
	"unicode"
)

// Topic identifies a class of notifications.
// Topics may be flat ("CHANGE_ITEM") or hierarchical using dot notation
// ("config.reloaded"). The bus keys listeners by exact topic.
type Topic string

// Separator is the character used to separate topic segments.
const Separator = "."

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// HasPrefix returns true if the topic starts with the given prefix on a
// segment boundary.
func (t Topic) HasPrefix(prefix Topic) bool {
	if prefix == "" {
		return true
	}
	s, p := string(t), string(prefix)
	if !strings.HasPrefix(s, p) {
		return false
	}
	if len(s) == len(p) {
		return true
	}
	return s[len(p)] == '.'
}

// IsValid reports whether the topic is usable as a registry key.
// A valid topic is non-empty, contains no whitespace and has no empty
// dot-separated segments.
func (t Topic) IsValid() bool {
	return t.Validate() == nil
}

// Validate returns a descriptive error for an invalid topic.
func (t Topic) Validate() error {
	s := string(t)
	if s == "" {
		return fmt.Errorf("topic is empty")
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return fmt.Errorf("topic %q contains whitespace", s)
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return fmt.Errorf("topic %q has an empty segment", s)
		}
	}
	return nil
}
