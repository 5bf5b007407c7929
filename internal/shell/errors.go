package shell

import "errors"

var (
	// ErrExit is returned by Exec for exit and quit.
	ErrExit = errors.New("shell: exit requested")

	// ErrUnknownCommand indicates a command word the shell does not know.
	ErrUnknownCommand = errors.New("unknown command (type 'help' for available commands)")

	// ErrUsage indicates missing or extra arguments.
	ErrUsage = errors.New("usage")

	// ErrBadNumber indicates an argument that is not a valid number.
	ErrBadNumber = errors.New("invalid number")
)
