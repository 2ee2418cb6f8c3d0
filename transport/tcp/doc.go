// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp provides a TCP acceptor handing out raw socket channels that
// can be registered with the reactor.
package tcp
