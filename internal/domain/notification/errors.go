package notification

import "errors"

var (
	ErrIndexOutOfRange = errors.New("notification index out of range")
	ErrNoSelection     = errors.New("no interest selected")
	ErrUnknownRole     = errors.New("no sound for role")
	ErrSoundMissing    = errors.New("sound asset not found")
)
