package cron

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// parser accepts 6-field expressions with seconds, 5-field expressions and
// descriptors such as @daily or @every 10m.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a cron expression.
func ParseSchedule(expression string) (cron.Schedule, error) {
	schedule, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expression, err)
	}
	return schedule, nil
}

// ValidateSchedule reports whether expression parses.
func ValidateSchedule(expression string) error {
	_, err := ParseSchedule(expression)
	return err
}
