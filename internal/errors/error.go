package errors

import (
	"errors"
	"fmt"
)

var (
	ErrLaunchFailed       = errors.New("engine launch failed")
	ErrEngineNotRunning   = errors.New("engine is not running")
	ErrCommandTimeout     = errors.New("engine command timed out")
	ErrAnalysisIncomplete = errors.New("engine analysis did not finish")
	ErrCheckpointMiss     = errors.New("checkpoint not found")
	ErrUnknownBackend     = errors.New("unknown checkpoint backend")
	ErrUnknownDialect     = errors.New("unknown engine dialect")
	ErrBadCoordinate      = errors.New("bad board coordinate")
	ErrBadColor           = errors.New("bad stone color")
	ErrMalformedRecord    = errors.New("malformed game record")
	ErrCursorBounds       = errors.New("cursor moved out of the game tree")
)

// CommandTimeoutError carries the command that never got its acknowledgements.
type CommandTimeoutError struct {
	Command  string
	Expected int
	Got      int
}

func (e *CommandTimeoutError) Error() string {
	return fmt.Sprintf("command %q: got %d of %d acknowledgements", e.Command, e.Got, e.Expected)
}

func (e *CommandTimeoutError) Is(target error) bool {
	return target == ErrCommandTimeout
}
