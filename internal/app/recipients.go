package app

import "course_expiry_notifier/internal/domain/course"

// Recipient is a resolved address eligible to receive a course notification.
type Recipient struct {
	Email  string
	Name   string
	UserID string // empty when the recipient is not a known user
}

// ResolveRecipients lists the responsible party first, then assigned users in
// stored order, skipping empty and repeated emails.
func ResolveRecipients(c *course.Course) []Recipient {
	if c == nil {
		return nil
	}
	out := make([]Recipient, 0, len(c.Assigned)+1)
	seen := make(map[string]struct{}, len(c.Assigned)+1)

	add := func(u course.UserRef) {
		if u.Email == "" {
			return
		}
		if _, dup := seen[u.Email]; dup {
			return
		}
		seen[u.Email] = struct{}{}
		out = append(out, Recipient{Email: u.Email, Name: u.Name, UserID: u.ID})
	}

	if c.Responsible != nil {
		add(*c.Responsible)
	}
	for _, u := range c.Assigned {
		add(u)
	}
	return out
}
