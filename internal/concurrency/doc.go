// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives for clink: the fixed-size executor that runs
// readiness callbacks off the reactor loop threads.
package concurrency
