// Package server implements a line-based chat server on top of the
// dual-multiplexer reactor. Every line received from one client is forwarded
// to all other connected clients.
package server
