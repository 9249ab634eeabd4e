package session

import "errors"

// ErrInvalidSession is returned when Put is called without a key or session.
var ErrInvalidSession = errors.New("session: missing key or session")
