package events

import "github.com/dshills/scrollspy/internal/event/topic"

// Config event topics.
const (
	// ConfigReloaded is dispatched after a watched config file was reloaded.
	ConfigReloaded topic.Topic = "config.reloaded"

	// ConfigReloadFailed is dispatched when a watched config file changed but
	// could not be loaded.
	ConfigReloadFailed topic.Topic = "config.reload.failed"
)

// ConfigReload is the payload of both config topics.
type ConfigReload struct {
	// Path is the config file that changed.
	Path string

	// Changes is the number of file events coalesced into this reload.
	Changes int

	// Err is set for ConfigReloadFailed.
	Err error
}
