package domain

import "strings"

// Delivery is the outcome of a mail submission: the recipients the server accepted.
type Delivery struct {
	Accepted []string
}

// AcceptedBy reports whether addr is among the accepted recipients, ignoring case.
func (d Delivery) AcceptedBy(addr string) bool {
	for _, a := range d.Accepted {
		if strings.EqualFold(strings.TrimSpace(a), addr) {
			return true
		}
	}
	return false
}
