// Package debounce provides a restart-style batching debouncer.
//
// A Batcher accumulates payloads passed to Invoke and hands the whole batch
// to its handler once no Invoke has happened for the configured delay. Every
// Invoke pushes the fire time forward by the full delay:
//
//	b := debounce.New(func(batch []Entry) {
//	    for _, e := range batch {
//	        classify(e)
//	    }
//	}, time.Second)
//	defer b.Dispose()
//
//	b.Invoke(entries...)
//
// The batcher is Idle until the first Invoke, Pending while a timer runs,
// and back to Idle when the handler fires or Dispose is called. After
// Dispose, Invoke returns ErrDisposed and the handler never starts again.
package debounce
