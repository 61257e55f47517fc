package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidElapsed = errors.New("enter time as HH:MM:SS, MM:SS or seconds")

// MaxElapsed is the longest time a workout can record, 9999:59:59.
const MaxElapsed = 10000*time.Hour - time.Second

// ParseElapsed accepts "HH:MM:SS", "MM:SS" or a plain number of seconds.
// Minutes and seconds after the first component must be below 60.
func ParseElapsed(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidElapsed
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, ErrInvalidElapsed
	}

	var total int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, ErrInvalidElapsed
		}
		if i > 0 && n >= 60 {
			return 0, ErrInvalidElapsed
		}
		total = total*60 + n
		if total > int64(MaxElapsed/time.Second) {
			return 0, ErrInvalidElapsed
		}
	}
	return time.Duration(total) * time.Second, nil
}

// FormatElapsed renders d as zero-padded HH:MM:SS. Hours grow past two digits
// rather than wrapping.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
