package httpserver

import (
	"fmt"
	"regexp"
	"time"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9]{1,50}$`)

// validateCreateLink checks the human-entered issuance fields. The core
// never re-validates these; the ceiling on max and TTL is enforced here.
func (s *Server) validateCreateLink(req createLinkRequest) map[string]string {
	fields := map[string]string{}

	if !usernameRe.MatchString(req.Username) {
		fields["username"] = "must be 1-50 alphanumeric characters"
	}

	if req.Max < 1 || req.Max > s.maxClicks {
		fields["max"] = fmt.Sprintf("must be between 1 and %d", s.maxClicks)
	}

	if req.ExpiresAt != nil {
		now := time.Now().UTC()
		switch {
		case !req.ExpiresAt.After(now):
			fields["expiresAt"] = "must be in the future"
		case req.ExpiresAt.After(now.Add(s.maxTTL)):
			fields["expiresAt"] = fmt.Sprintf("must be within %s from now", s.maxTTL)
		}
	}

	return fields
}
