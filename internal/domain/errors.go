package domain

import "errors"

// ErrDirectory wraps every persistence failure of the user directory.
var ErrDirectory = errors.New("user directory error")
