package pronounce

// longSequence is the length from which runes that fill more than 1% of the
// second sequence no longer seed matches. They can still extend a match.
const longSequence = 200

// matchRatio returns 2*M/T, where M is the number of runes covered by the
// matching blocks of a and b and T is len(a)+len(b). Blocks are found the
// Ratcliff/Obershelp way: take the longest common run, then recurse on the
// pieces to its left and right. Two empty inputs are identical.
func matchRatio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(newBlockMatcher(a, b).matched()) / float64(total)
}

type blockMatcher struct {
	a, b []rune
	// b2j indexes the ascending positions of each rune in b.
	b2j map[rune][]int
}

func newBlockMatcher(a, b []rune) *blockMatcher {
	b2j := make(map[rune][]int)
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}
	if n := len(b); n >= longSequence {
		limit := n/100 + 1
		for r, idx := range b2j {
			if len(idx) > limit {
				delete(b2j, r)
			}
		}
	}
	return &blockMatcher{a: a, b: b, b2j: b2j}
}

// longest finds the longest run shared by a[alo:ahi] and b[blo:bhi]. Ties go
// to the run starting earliest in a, then earliest in b.
func (m *blockMatcher) longest(alo, ahi, blo, bhi int) (i, j, k int) {
	i, j = alo, blo
	runs := map[int]int{}
	for ai := alo; ai < ahi; ai++ {
		next := make(map[int]int)
		for _, bj := range m.b2j[m.a[ai]] {
			if bj < blo {
				continue
			}
			if bj >= bhi {
				break
			}
			n := runs[bj-1] + 1
			next[bj] = n
			if n > k {
				i, j, k = ai-n+1, bj-n+1, n
			}
		}
		runs = next
	}
	for i > alo && j > blo && m.a[i-1] == m.b[j-1] {
		i, j, k = i-1, j-1, k+1
	}
	for i+k < ahi && j+k < bhi && m.a[i+k] == m.b[j+k] {
		k++
	}
	return i, j, k
}

// matched sums the sizes of all matching blocks.
func (m *blockMatcher) matched() int {
	type window struct{ alo, ahi, blo, bhi int }
	pending := []window{{0, len(m.a), 0, len(m.b)}}
	total := 0
	for len(pending) > 0 {
		w := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		i, j, k := m.longest(w.alo, w.ahi, w.blo, w.bhi)
		if k == 0 {
			continue
		}
		total += k
		if w.alo < i && w.blo < j {
			pending = append(pending, window{w.alo, i, w.blo, j})
		}
		if i+k < w.ahi && j+k < w.bhi {
			pending = append(pending, window{i + k, w.ahi, j + k, w.bhi})
		}
	}
	return total
}
