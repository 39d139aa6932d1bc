package series

// WindowRecent selects up to count of the most recent axis positions, most
// recent first. Positions where the anchor series has an observation are
// preferred; when the anchor has none on the axis (or is absent) the most
// recent positions overall are used instead. The result is never padded.
func WindowRecent(axis []DateKey, series []NamedSeries, anchor string, count int) []DateKey {
	var has func(i int) bool
	if s, ok := Find(series, anchor); ok {
		has = func(i int) bool {
			_, ok := s.Points[axis[i]]
			return ok
		}
	}
	return windowRecent(axis, has, count)
}

func windowRecent(axis []DateKey, has func(i int) bool, count int) []DateKey {
	if count <= 0 || len(axis) == 0 {
		return []DateKey{}
	}

	picked := make([]DateKey, 0, min(count, len(axis)))
	if has != nil {
		for i := len(axis) - 1; i >= 0 && len(picked) < count; i-- {
			if has(i) {
				picked = append(picked, axis[i])
			}
		}
	}
	if len(picked) > 0 {
		return picked
	}

	for i := len(axis) - 1; i >= 0 && len(picked) < count; i-- {
		picked = append(picked, axis[i])
	}
	return picked
}
