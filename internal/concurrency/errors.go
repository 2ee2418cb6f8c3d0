// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import (
	"fmt"

	"github.com/momentics/clink/api"
)

var (
	// ErrExecutorClosed indicates the executor has been shut down
	ErrExecutorClosed = fmt.Errorf("executor: %w", api.ErrClosed)

	// ErrNilTask indicates a nil task was submitted
	ErrNilTask = fmt.Errorf("executor: nil task: %w", api.ErrInvalidArgument)
)
