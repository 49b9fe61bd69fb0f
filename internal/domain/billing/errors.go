package billing

import "errors"

var ErrInternal = errors.New("internal error")
