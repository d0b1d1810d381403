package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Five fields (minute hour dom month dow), the same dialect asynq's
// scheduler accepts. Descriptors such as @daily are rejected so a schedule
// that validates here is always one the scheduler can register.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseSchedule parses a five-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("invalid cron expression: empty")
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule, nil
}

// NextCronTime returns the first run of expr strictly after from, in UTC.
func NextCronTime(expr string, from time.Time) (time.Time, error) {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(from.UTC()), nil
}

func ValidateCronExpr(expr string) error {
	_, err := ParseSchedule(expr)
	return err
}
