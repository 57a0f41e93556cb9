// Package channel maintains the feed's persistent bidirectional connection.
//
// The client follows a small state machine:
//
//	disconnected -> connecting -> open -> disconnected (close or error)
//	             -> connecting (retry) -> ... -> disconnected (retries exhausted)
//
// # Reconnection Strategy
//
// After a connection fails, the next attempt is scheduled after
//
//	delay = base * 2^retryCount
//
// With the default 1 second base and 5 attempts that is 1s, 2s, 4s, 8s, 16s.
// A successful open resets the counter. When the attempts are used up the
// client stays disconnected, shows a persistent notification, and never retries
// on its own again; only an explicit Connect starts over.
//
// # Liveness
//
// While open, a ping frame is sent every PingInterval. The probe stops the
// moment the connection leaves the open state.
//
// # Messages
//
// Inbound frames are decoded into the typed message variant and handed to a
// message.Handler. Unknown types are ignored. Send drops frames unless the
// connection is open.
package channel
