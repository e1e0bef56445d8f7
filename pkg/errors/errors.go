package errors

import "errors"

// ErrOptimisticLock the row changed since it was read.
var ErrOptimisticLock = errors.New("les données ont été modifiées entre-temps, veuillez recharger")
