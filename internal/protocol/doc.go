// Package protocol correlates tsserver requests with their responses.
//
// The protocol package provides a Controller that owns one server
// connection. It assigns sequence numbers, writes requests in sequence
// order, routes responses to the pending request they answer and publishes
// events on the client's event bus.
//
// The Controller handles:
//   - Assigning sequence numbers from a Sequence shared across connections
//   - Ordered, non-blocking request submission
//   - Routing responses by request_seq to the pending table
//   - Rejecting every pending request when the connection fails
//   - Publishing decoded events, including those that arrive before the
//     handshake completes; a body that does not decode is published raw
//
// Example usage:
//
//	transport := subprocess.NewTransport(log, options)
//	transport.Start(ctx)
//
//	controller := protocol.NewController(log, transport, &protocol.Config{
//		Sequence: seq,
//		Table:    table,
//		Events:   event.NewDispatcher(bus),
//	})
//	controller.Start(ctx)
//
//	_, entry, err := controller.Send(message.CommandQuickInfo, args, true)
//	resp, err := entry.Wait(ctx)
package protocol
