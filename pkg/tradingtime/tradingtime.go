// Package tradingtime centralizes A-share market calendar arithmetic.
// ⭐ SSOT: 交易时间判断只在这个包
package tradingtime

import "time"

// Beijing is the exchange time zone. LoadLocation can only fail when the
// tzdata is broken, so a fixed-offset fallback keeps the engine usable.
var Beijing = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}()

// Now returns the current time in Beijing.
func Now() time.Time {
	return time.Now().In(Beijing)
}

// IsTradingDay reports whether t falls on a weekday. Exchange holidays are
// not modeled; the strategy simply sees stale data on those days.
func IsTradingDay(t time.Time) bool {
	switch t.In(Beijing).Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// IsTradingHours reports whether t is inside a trading session
// (9:30-11:30, 13:00-15:00 Beijing time).
func IsTradingHours(t time.Time) bool {
	t = t.In(Beijing)
	if !IsTradingDay(t) {
		return false
	}
	mins := t.Hour()*60 + t.Minute()
	morning := mins >= 9*60+30 && mins <= 11*60+30
	afternoon := mins >= 13*60 && mins <= 15*60
	return morning || afternoon
}

// DateTag formats t as the YYYY-MM-DD key used for daily cache entries.
func DateTag(t time.Time) string {
	return t.In(Beijing).Format("2006-01-02")
}

// Stamp formats t the way user-facing notifications expect.
func Stamp(t time.Time) string {
	return t.In(Beijing).Format("2006-01-02 15:04")
}
