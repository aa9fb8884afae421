package util

import (
	"fmt"
	"time"
)

var sizeUnits = []string{"KB", "MB", "GB", "TB"}

// Human renders a byte count in binary units, two decimals above 1 KB.
func Human(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n) / 1024
	unit := 0
	for v >= 1024 && unit < len(sizeUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", v, sizeUnits[unit])
}

// PerSecond is n/d as a whole-number rate; zero when d is not positive.
func PerSecond(n int64, d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	return fmt.Sprintf("%.0f", float64(n)/d.Seconds())
}
