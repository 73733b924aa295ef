package events

import "github.com/dshills/scrollspy/internal/event/topic"

// ChangeItem is dispatched by the visibility tracker once per settled
// visibility transition of an observed element.
const ChangeItem topic.Topic = "CHANGE_ITEM"

// ItemChange is the CHANGE_ITEM payload.
type ItemChange struct {
	// ID is the identifier of the observed element.
	ID string `json:"id" yaml:"id"`

	// ShowFlag is true when the element became visible and false when it
	// became hidden.
	ShowFlag bool `json:"showFlag" yaml:"showFlag"`
}
