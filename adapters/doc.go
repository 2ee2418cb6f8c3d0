// Package adapters
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bridges a raw api.Channel and an api.IoProvider into one-shot asynchronous
// receive and send operations with listener callbacks.
package adapters
