package shopping

import "time"

// SetNowFunc replaces the clock until the returned function is called.
func SetNowFunc(f func() time.Time) (restore func()) {
	saved := nowFunc
	nowFunc = f
	return func() { nowFunc = saved }
}
