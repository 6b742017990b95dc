package progress

// Percent returns 100*solved/total, or 0 when total is 0.
func Percent(solved, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(solved) / float64(total) * 100
}

// Recompute returns t with Progress derived from its problems. Nothing else
// changes. It must run after every change to a problem's Completed field.
func Recompute(t Topic) Topic {
	t.Progress = Percent(t.Solved(), len(t.Problems))
	return t
}
