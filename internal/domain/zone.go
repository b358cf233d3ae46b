package domain

import (
	"fmt"
	"sync"
	"time"
)

// ZoneResolver resolves IANA zone names. Implementations must fail closed
// on names they do not know.
type ZoneResolver interface {
	Resolve(name string) (*time.Location, error)
}

// TZDatabase resolves zones against the Go timezone database and caches
// the result. The zero value is ready to use.
type TZDatabase struct {
	cache sync.Map // name -> *time.Location
}

func (d *TZDatabase) Resolve(name string) (*time.Location, error) {
	// "" and "Local" resolve to UTC and the host zone in the stdlib.
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimezone, name)
	}
	if v, ok := d.cache.Load(name); ok {
		return v.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownTimezone, name, err)
	}
	d.cache.Store(name, loc)
	return loc, nil
}
