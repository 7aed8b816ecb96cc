package evo

// Dominates reports whether fitness vector a dominates b: a is at least as
// good on every dimension and strictly better on at least one.
func Dominates(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	strictlyBetter := false
	for i := range a {
		if a[i] < b[i] {
			return false
		}
		if a[i] > b[i] {
			strictlyBetter = true
		}
	}
	return strictlyBetter
}

// Rank performs standard non-dominated sorting over a generation's fitness
// matrix, returning ordered fronts of population indices. Ties within a
// front are unordered.
func Rank(matrix [][]float64) [][]int {
	n := len(matrix)
	if n == 0 {
		return nil
	}

	dominatedBy := make([]int, n)
	dominatedSet := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			switch {
			case Dominates(matrix[i], matrix[j]):
				dominatedSet[i] = append(dominatedSet[i], j)
				dominatedBy[j]++
			case Dominates(matrix[j], matrix[i]):
				dominatedSet[j] = append(dominatedSet[j], i)
				dominatedBy[i]++
			}
		}
	}

	var fronts [][]int
	current := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if dominatedBy[i] == 0 {
			current = append(current, i)
		}
	}
	for len(current) > 0 {
		fronts = append(fronts, current)
		next := make([]int, 0, n)
		for _, i := range current {
			for _, j := range dominatedSet[i] {
				dominatedBy[j]--
				if dominatedBy[j] == 0 {
					next = append(next, j)
				}
			}
		}
		current = next
	}
	return fronts
}

// FrontOf maps every population index to its 1-based front rank.
func FrontOf(fronts [][]int, n int) []int {
	out := make([]int, n)
	for rank, front := range fronts {
		for _, idx := range front {
			if idx >= 0 && idx < n {
				out[idx] = rank + 1
			}
		}
	}
	return out
}
