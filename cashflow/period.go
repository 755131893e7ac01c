package cashflow

// =============================================================================
// DATE RANGE - Inclusive filter bounds
// =============================================================================

// DateRange is an inclusive [From, To] window. A zero bound is open.
type DateRange struct {
	From Date
	To   Date
}

// Between builds a closed range.
func Between(from, to Date) DateRange { return DateRange{From: from, To: to} }

// Contains reports whether d lies inside the range.
func (r DateRange) Contains(d Date) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

// IsUnbounded is true when neither bound is set.
func (r DateRange) IsUnbounded() bool { return r.From.IsZero() && r.To.IsZero() }

// Days lists every day of a closed range. Open ranges yield nil.
func (r DateRange) Days() []Date {
	if r.From.IsZero() || r.To.IsZero() {
		return nil
	}
	var days []Date
	for d := r.From; d.BeforeOrEqual(r.To); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (r DateRange) String() string {
	from, to := r.From.String(), r.To.String()
	if from == "" {
		from = "-inf"
	}
	if to == "" {
		to = "+inf"
	}
	return "[" + from + ", " + to + "]"
}
