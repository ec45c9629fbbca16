package registry

import "errors"

// ErrDuplicateName reports a join-time display name collision. The
// registration still succeeds; callers decide whether to warn or reject.
var ErrDuplicateName = errors.New("display name already in use")
