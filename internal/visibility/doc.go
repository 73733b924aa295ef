// Package visibility tracks which items inside a root element are in view.
//
// A Tracker asks an intersection collaborator (an Observer built by an
// ObserverFactory) to watch every element matching Config.ItemSelector.
// Raw intersection entries are coalesced by a debounce.Batcher and, once the
// burst settles, each entry is published on the bus as an
// events.ChangeItem event carrying events.ItemChange{ID, ShowFlag}.
//
// Entries are published in arrival order without deduplication: an element
// that appears and disappears within one settle window produces two events.
//
// Hosts without an intersection capability get ErrCapabilityUnavailable from
// Activate and can substitute Noop.
package visibility
