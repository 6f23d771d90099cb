package availability

import (
	"context"
	"fmt"
	"time"

	"tempo-service/internal/models"
)

// Resolver combines a teacher's weekly template with date-specific
// exceptions into the final open ranges for one calendar date.
type Resolver struct {
	rules      WeeklyRuleRepo
	exceptions ExceptionRepo
}

func NewResolver(rules WeeklyRuleRepo, exceptions ExceptionRepo) *Resolver {
	return &Resolver{rules: rules, exceptions: exceptions}
}

// ResolveDay returns the merged open ranges for the date. A teacher
// with no rules and no exceptions on the date yields no ranges, not an
// error. An active whole-day block overrides everything else.
func (r *Resolver) ResolveDay(ctx context.Context, teacherID string, date time.Time) ([]TimeRange, error) {
	const op = "availability.Resolver.ResolveDay"

	rules, err := r.rules.ActiveRulesByWeekday(ctx, teacherID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ranges := make([]TimeRange, 0, len(rules))
	for _, rule := range rules {
		ranges = append(ranges, TimeRange{Start: rule.StartTime, End: rule.EndTime})
	}

	exceptions, err := r.exceptions.ActiveExceptionsByDate(ctx, teacherID, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, ex := range exceptions {
		if ex.WholeDay() {
			return nil, nil
		}
	}

	for _, ex := range exceptions {
		if ex.StartTime == nil || ex.EndTime == nil {
			continue
		}
		switch ex.Type {
		case models.ExceptionBlock:
			ranges = Subtract(ranges, *ex.StartTime, *ex.EndTime)
		case models.ExceptionExtra:
			ranges = append(ranges, TimeRange{Start: *ex.StartTime, End: *ex.EndTime})
		}
	}

	return Merge(ranges), nil
}
