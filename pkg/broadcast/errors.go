package broadcast

import "errors"

// ErrClosed is returned by Subscribe after Shutdown.
var ErrClosed = errors.New("broadcast: hub is shut down")
