// Package session
// Author: momentics <momentics@gmail.com>
//
// Connection-level layer above the channel adapter.
//
// A Connector frames a byte stream into newline-terminated messages, keeps a
// receive armed for the lifetime of the connection and serializes outbound
// messages through a FIFO so only one send is in flight at a time. Store keeps
// live connectors in a sharded map keyed by connector id.

package session
