package proc

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/sho0pi/naturaltime"
)

// ErrInvalidTime is returned for input that is not a duration, a bare number
// of seconds or a recognizable date.
var ErrInvalidTime = errors.New("invalid-time")

var (
	durationPattern = regexp.MustCompile(`(?i)^(\d+)\s*(s|sec|secs|second|seconds|m|min|mins|minute|minutes|h|hr|hrs|hour|hours|d|day|days)$`)
	secondsPattern  = regexp.MustCompile(`^\d+$`)
)

var unitMultipliers = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
}

// TimeParser turns a user-entered "when" into an absolute deadline.
type TimeParser struct {
	loc     *time.Location
	natural *naturaltime.Parser
}

// NewTimeParser returns a parser reading absolute dates in loc. With natural
// enabled, phrases such as "tomorrow at 3pm" are accepted as a last resort.
func NewTimeParser(loc *time.Location, natural bool) (*TimeParser, error) {
	if loc == nil {
		loc = time.Local
	}
	p := &TimeParser{loc: loc}
	if natural {
		np, err := naturaltime.New()
		if err != nil {
			return nil, fmt.Errorf("init naturaltime parser: %w", err)
		}
		p.natural = np
	}
	return p, nil
}

// Parse resolves raw relative to now. The first matching form wins:
// "<n><unit>", "<n>" seconds, then an absolute date. Deadlines in the past are
// returned as-is.
func (p *TimeParser) Parse(raw string, now time.Time) (time.Time, error) {
	when := strings.TrimSpace(raw)
	if when == "" {
		return time.Time{}, ErrInvalidTime
	}

	if m := durationPattern.FindStringSubmatch(when); m != nil {
		unit := unitMultipliers[strings.ToLower(m[2])]
		return addUnits(now, m[1], unit)
	}

	if secondsPattern.MatchString(when) {
		return addUnits(now, when, time.Second)
	}

	if t, err := dateparse.ParseIn(when, p.loc); err == nil {
		return t, nil
	}

	if p.natural != nil {
		if t, err := p.natural.ParseDate(when, now.In(p.loc)); err == nil && t != nil {
			return *t, nil
		}
	}

	return time.Time{}, ErrInvalidTime
}

func addUnits(now time.Time, digits string, unit time.Duration) (time.Time, error) {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	if n > math.MaxInt64/int64(unit) {
		return time.Time{}, fmt.Errorf("%w: %s overflows", ErrInvalidTime, digits)
	}
	return now.Add(time.Duration(n) * unit), nil
}
