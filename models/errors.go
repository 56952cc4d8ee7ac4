package models

import "errors"

// ErrNoData marks a day with nothing recorded, or a response missing the fields
// a transform needs. Callers render a notice for it instead of an error.
var ErrNoData = errors.New("no data recorded")
