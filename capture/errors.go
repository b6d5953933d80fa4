package capture

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTimeout is matched by *TimeoutError.
	ErrTimeout = errors.New("capture: timed out")
	// ErrAborted is returned when the caller's context ends before completion.
	ErrAborted = errors.New("capture: aborted")
)

// TimeoutError lists the channels still empty when the deadline passed.
type TimeoutError struct {
	Missing []Channel
	After   time.Duration
}

func (e *TimeoutError) Error() string {
	names := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		names[i] = string(c)
	}
	return fmt.Sprintf("capture: timed out after %s, missing %s", e.After, strings.Join(names, ", "))
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }
