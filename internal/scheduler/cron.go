package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// cronField is one of the 5 standard fields: minute, hour, day-of-month,
// month, day-of-week. "*" matches everything; a comma-separated list of
// integers matches any listed value. Ranges and step values are out of
// scope for this minimal matcher — a full cron grammar belongs to a real
// cron library, which the retrieval pack does not carry.
type cronField struct {
	wildcard bool
	values   map[int]struct{}
}

func parseCronField(raw string, min, max int) (cronField, error) {
	raw = strings.TrimSpace(raw)
	if raw == "*" || raw == "" {
		return cronField{wildcard: true}, nil
	}
	values := make(map[int]struct{})
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return cronField{}, fmt.Errorf("invalid cron field value %q: %w", part, err)
		}
		if n < min || n > max {
			return cronField{}, fmt.Errorf("cron field value %d out of range [%d,%d]", n, min, max)
		}
		values[n] = struct{}{}
	}
	return cronField{values: values}, nil
}

func (f cronField) matches(v int) bool {
	if f.wildcard {
		return true
	}
	_, ok := f.values[v]
	return ok
}

type cronSpec struct {
	minute, hour, dom, month, dow cronField
}

func parseCronExpr(expr string) (cronSpec, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return cronSpec{}, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}
	var spec cronSpec
	var err error
	if spec.minute, err = parseCronField(fields[0], 0, 59); err != nil {
		return cronSpec{}, err
	}
	if spec.hour, err = parseCronField(fields[1], 0, 23); err != nil {
		return cronSpec{}, err
	}
	if spec.dom, err = parseCronField(fields[2], 1, 31); err != nil {
		return cronSpec{}, err
	}
	if spec.month, err = parseCronField(fields[3], 1, 12); err != nil {
		return cronSpec{}, err
	}
	if spec.dow, err = parseCronField(fields[4], 0, 6); err != nil {
		return cronSpec{}, err
	}
	return spec, nil
}

func (s cronSpec) matches(t time.Time) bool {
	return s.minute.matches(t.Minute()) &&
		s.hour.matches(t.Hour()) &&
		s.dom.matches(t.Day()) &&
		s.month.matches(int(t.Month())) &&
		s.dow.matches(int(t.Weekday()))
}

// maxCronScanMinutes bounds how far ahead nextCronMatch will scan before
// giving up, guarding against a field combination that never matches
// (e.g. February 30th).
const maxCronScanMinutes = 366 * 24 * 60

// nextCronMatch scans minute-by-minute from just after from for the next
// timestamp matching expr. This is a next-tick scan, not a closed-form
// computation; sufficient for a scheduler whose tick granularity is
// already minute-scale.
func nextCronMatch(expr string, from time.Time) (time.Time, error) {
	spec, err := parseCronExpr(expr)
	if err != nil {
		return time.Time{}, err
	}
	candidate := from.Truncate(time.Minute).Add(time.Minute)
	for i := 0; i < maxCronScanMinutes; i++ {
		if spec.matches(candidate) {
			return candidate, nil
		}
		candidate = candidate.Add(time.Minute)
	}
	return time.Time{}, fmt.Errorf("no matching time found for cron expression %q within a year", expr)
}
