package utils

import "time"

func Now() time.Time {
	return time.Now().UTC()
}

// Date truncates t to a calendar date at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
