// Package event is the publish/subscribe surface used to fan out server
// events to any number of listeners.
//
// Handlers subscribed to a name are invoked synchronously, in subscription
// order, on every Publish of that name. The handler list is snapshotted
// before dispatch, so subscribing or unsubscribing from inside a handler is
// safe; a handler unsubscribed before dispatch reaches it is skipped.
//
// Topic[T] ties an event name to its payload type:
//
//	unsubscribe := event.Subscribe(bus, event.SemanticDiag, func(body message.DiagnosticEventBody) {
//	    fmt.Println(body.File, len(body.Diagnostics))
//	})
//	defer unsubscribe()
package event
