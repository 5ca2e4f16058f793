package task

// NextOccurrence computes the successor of a repeating task that is being
// marked done. The successor is a sibling of the original (same parent),
// keeps the content and frequency, starts as todo, and is due one period
// after the original: daily +1 day, weekly +7 days, monthly +1 calendar
// month with the day clamped to the shorter month.
//
// Returns nil for a task with no repeat frequency. A task with a frequency
// but no due date yields a skeleton with no due date; that is defined
// behavior, not an error.
func NextOccurrence(t *Task) *Skeleton {
	if t == nil || t.Repeat == RepeatNone {
		return nil
	}

	s := &Skeleton{
		Content:  t.Content,
		Status:   StatusTodo,
		Repeat:   t.Repeat,
		ParentID: t.ParentID,
	}

	if t.DueDate == nil {
		return s
	}

	var next Date
	switch t.Repeat {
	case RepeatDaily:
		next = t.DueDate.AddDays(1)
	case RepeatWeekly:
		next = t.DueDate.AddDays(7)
	case RepeatMonthly:
		next = t.DueDate.AddMonthClamped()
	default:
		return nil
	}
	s.DueDate = &next

	return s
}
