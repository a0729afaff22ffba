package stats

// Summary is a frequency table over a list of items. Items keep the order
// they were given in (newest first for every store list).
type Summary[T any] struct {
	Items          []T            `json:"items"`
	CountsByStatus map[string]int `json:"countsByStatus"`
	Total          int            `json:"total"`
}

// Aggregate counts items by the key returned from keyFn. Items whose key is
// absent are counted in Total but left out of CountsByStatus.
func Aggregate[T any](items []T, keyFn func(T) (string, bool)) Summary[T] {
	s := Summary[T]{
		Items:          make([]T, 0, len(items)),
		CountsByStatus: make(map[string]int),
	}
	for _, item := range items {
		s.Items = append(s.Items, item)
		s.Total++
		if key, ok := keyFn(item); ok {
			s.CountsByStatus[key]++
		}
	}
	return s
}

// optional adapts a nullable column to a key function result.
func optional(v *string) (string, bool) {
	if v == nil || *v == "" {
		return "", false
	}
	return *v, true
}
