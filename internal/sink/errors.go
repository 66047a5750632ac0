package sink

import "errors"

var ErrClosed = errors.New("sink closed")
