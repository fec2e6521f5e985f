package fs

import "errors"

// Sentinel errors, in the style of a littlefs-style ErrNotMounted /
// ErrNotFound / ErrExists set: structural failures a caller can check with
// errors.Is rather than precondition violations, which instead panic via
// kernel.Assert.
var (
	ErrExists        = errors.New("fs: name already exists")
	ErrNotFound      = errors.New("fs: name not found")
	ErrNotADirectory = errors.New("fs: path component is a file")
	ErrDirectoryFull = errors.New("fs: directory is full")
	ErrNoSpace       = errors.New("fs: not enough free sectors")
	ErrNoOpenFile    = errors.New("fs: no file is currently open")
	ErrBadOffset     = errors.New("fs: offset out of range")
)
