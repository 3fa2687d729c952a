package common

// InsertBounded inserts entry into a list kept ordered by better, where
// better(a, b) reports whether a ranks strictly ahead of b. The entry lands
// before the first element it strictly beats, so equal entries keep their
// insertion order. The list is trimmed to capacity and the entry's 1-indexed
// position is returned, or 0 when it fell off the end.
func InsertBounded[T any](list []T, entry T, better func(a, b T) bool, capacity int) ([]T, int) {
	pos := len(list)
	for i := range list {
		if better(entry, list[i]) {
			pos = i
			break
		}
	}
	if capacity > 0 && pos >= capacity {
		if len(list) > capacity {
			list = list[:capacity]
		}
		return list, 0
	}
	list = append(list, entry)
	copy(list[pos+1:], list[pos:])
	list[pos] = entry
	if capacity > 0 && len(list) > capacity {
		for i := capacity; i < len(list); i++ {
			var zero T
			list[i] = zero
		}
		list = list[:capacity]
	}
	return list, pos + 1
}

// IndexOf returns the index of the first element matching pred, or -1.
func IndexOf[T any](list []T, pred func(T) bool) int {
	for i := range list {
		if pred(list[i]) {
			return i
		}
	}
	return -1
}

// RemoveAt deletes the element at i preserving order.
func RemoveAt[T any](list []T, i int) []T {
	if i < 0 || i >= len(list) {
		return list
	}
	return append(list[:i], list[i+1:]...)
}
