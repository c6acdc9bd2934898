package energy

// tableProperty caches one check of the label table.
type tableProperty uint8

const (
	propertyUnknown tableProperty = iota
	propertyHolds
	propertyFails
)

func propertyOf(holds bool) tableProperty {
	if holds {
		return propertyHolds
	}
	return propertyFails
}

func (m *Model) resetTableChecks() {
	m.metric = propertyUnknown
	m.regularForSwap = propertyUnknown
}

// IsMetric reports whether the label table is a metric: V(a,a) = 0, V(a,b) = V(b,a) > 0 for
// a != b and V(a,c) <= V(a,b) + V(b,c). The default potts cost is a metric. A smooth cost
// function cannot be checked up front, the move builder counts the terms it cannot represent
// instead. The result is kept until the table changes.
func (m *Model) IsMetric() bool {
	if m.smoothFn != nil || m.smoothTable == nil {
		return true
	}
	if m.metric == propertyUnknown {
		m.metric = propertyOf(isMetric(m.smoothTable, m.numLabels))
	}
	return m.metric == propertyHolds
}

func isMetric(v []int64, n int) bool {
	for a := 0; a < n; a++ {
		if v[a*n+a] != 0 {
			return false
		}
		for b := 0; b < n; b++ {
			if a == b {
				continue
			}
			if v[a*n+b] != v[b*n+a] || v[a*n+b] <= 0 {
				return false
			}
		}
	}
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			vab := v[a*n+b]
			for c := 0; c < n; c++ {
				if v[a*n+c] > vab+v[b*n+c] {
					return false
				}
			}
		}
	}
	return true
}

// IsRegularForSwap reports whether every label pair gives a regular binary term:
// V(a,a) + V(b,b) <= V(a,b) + V(b,a).
func (m *Model) IsRegularForSwap() bool {
	if m.smoothFn != nil || m.smoothTable == nil {
		return true
	}
	if m.regularForSwap == propertyUnknown {
		m.regularForSwap = propertyOf(isRegularForSwap(m.smoothTable, m.numLabels))
	}
	return m.regularForSwap == propertyHolds
}

func isRegularForSwap(v []int64, n int) bool {
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			if v[a*n+a]+v[b*n+b] > v[a*n+b]+v[b*n+a] {
				return false
			}
		}
	}
	return true
}
