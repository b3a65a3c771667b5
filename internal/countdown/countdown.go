// Package countdown splits the time left until a target into display units.
package countdown

import (
	"fmt"
	"time"
)

// Units is the remaining time broken into days, hours, minutes and seconds.
type Units struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Expired bool `json:"expired"`
}

// Compute returns the units left from now until target. A target in the
// past, or no target at all, gives all-zero units marked expired.
func Compute(target, now time.Time) Units {
	if target.IsZero() {
		return Units{Expired: true}
	}
	remaining := target.Sub(now)
	if remaining <= 0 {
		return Units{Expired: true}
	}

	total := int64(remaining / time.Second)
	return Units{
		Days:    int(total / 86400),
		Hours:   int(total % 86400 / 3600),
		Minutes: int(total % 3600 / 60),
		Seconds: int(total % 60),
	}
}

// Pad returns the units as two-digit strings, days left unpadded past 99.
func (u Units) Pad() [4]string {
	return [4]string{
		fmt.Sprintf("%02d", u.Days),
		fmt.Sprintf("%02d", u.Hours),
		fmt.Sprintf("%02d", u.Minutes),
		fmt.Sprintf("%02d", u.Seconds),
	}
}

// TotalSeconds is the inverse of Compute, used by clients that tick locally.
func (u Units) TotalSeconds() int64 {
	return int64(u.Days)*86400 + int64(u.Hours)*3600 + int64(u.Minutes)*60 + int64(u.Seconds)
}
