package cmp

// SliceEq checks a and b have equal elements in the same order.
func SliceEq[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for nth, va := range a {
		if va != b[nth] {
			return false
		}
	}
	return true
}

// SliceEqWith checks a and b are element-wise equal by pred.
func SliceEqWith[T any, U any](a []T, b []U, pred func(a T, b U) bool) bool {
	if len(a) != len(b) {
		return false
	}

	for nth := range a {
		if !pred(a[nth], b[nth]) {
			return false
		}
	}

	return true
}

// SliceContentEq checks a and b have the same elements, ignoring order.
//
// Elements are matched up by multiplicity: {x, x, y} and {x, y, y} are
// not content-equal.
func SliceContentEq[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}

	count := map[T]int{}
	for _, va := range a {
		count[va] += 1
	}
	for _, vb := range b {
		count[vb] -= 1
		if count[vb] < 0 {
			return false
		}
	}
	return true
}
