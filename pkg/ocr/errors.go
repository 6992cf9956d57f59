package ocr

import "errors"

// ErrNoText is returned when no pass recognized any text.
var ErrNoText = errors.New("no text recognized")
