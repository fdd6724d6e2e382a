package feed

import "iter"

// capped yields 0, 1, ... while present(i) holds, never reaching limit.
func capped(limit int, present func(int) bool) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; i < limit && present(i); i++ {
			if !yield(i) {
				return
			}
		}
	}
}

// untilMissing yields 0, 1, ... until present(i) fails.
func untilMissing(present func(int) bool) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; present(i); i++ {
			if !yield(i) {
				return
			}
		}
	}
}
