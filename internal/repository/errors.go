package repository

import "errors"

// ErrDuplicate нарушение уникального ограничения
var ErrDuplicate = errors.New("duplicate record")

func statusStrings[T ~string](statuses []T) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
