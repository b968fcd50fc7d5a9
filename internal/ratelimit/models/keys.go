package models

import (
	"fmt"

	id "presence/pkg/domain"
	"presence/pkg/platform/strings"
)

const keyPrefix = "checkin"

// Subject identifies who is attempting what: one user, one event, one method.
type Subject struct {
	UserID  id.UserID
	EventID id.EventID
	Method  string
}

// Key renders the store key checkin:<user>:<event>:<method>. Segments are
// sanitized so a crafted method cannot collide with another subject's key.
func (s Subject) Key() string {
	return fmt.Sprintf("%s:%s:%s:%s",
		keyPrefix,
		s.UserID.String(),
		s.EventID.String(),
		strings.SanitizeKeySegment(s.Method),
	)
}
