package interfaces

import "time"

// Clock supplies the logical time used for deadline checks.
type Clock interface {
	Now() time.Time
}
