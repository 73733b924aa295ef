// Package events defines the event types and payloads exchanged over the
// scrollspy event bus.
//
// Each event type has a topic constant and a payload struct:
//
//   - Navigation events: item visibility transitions (CHANGE_ITEM)
//   - Viewport events: scroll position changes
//   - Config events: live reload results
//
// Payloads are dispatched as the single dispatch argument, so listeners can
// use event.On[T] to receive them typed:
//
//	bus.AddEventListener(events.ChangeItem, event.On(func(ctx context.Context, c events.ItemChange) error {
//	    fmt.Println(c.ID, c.ShowFlag)
//	    return nil
//	}), nil)
package events
