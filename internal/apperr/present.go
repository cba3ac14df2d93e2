package apperr

import (
	"github.com/nadav-galili/starter/internal/toast"
)

// Present classifies err and shows the resolved message as an error toast.
// It returns the classification so callers can branch on it.
func Present(n toast.Notifier, err error) Classification {
	c := Classify(err)
	if n != nil {
		n.Error(c.Message, toast.WithHaptic(toast.HapticError))
	}
	return c
}
