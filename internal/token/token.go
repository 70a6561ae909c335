// Package token implements the reference token embedded in email
// subject lines to correlate vendor replies back to a request.
package token

import (
	"regexp"

	"github.com/mdidris/rfpd/internal/model"
)

// Marker is the literal prefix of every reference token. Outbound
// subjects carry "Ref:<id>" and the mailbox search filters on this
// substring.
const Marker = "Ref:"

// pattern matches a token anywhere in a subject line. The identifier
// shape is fixed at 24 lowercase hex characters, which keeps false
// positives out of ordinary reply subjects ("Re: RFP Invitation - ...").
var pattern = regexp.MustCompile(`Ref:([a-f0-9]{24})`)

// Encode produces the subject-line token for a request identifier.
// Deterministic: the same identifier always yields the same token.
func Encode(id model.RequestID) string {
	return Marker + string(id)
}

// Decode extracts a request identifier from arbitrary subject text.
// Absence of a token is a normal outcome, reported via the boolean;
// Decode is pure and never fails otherwise.
func Decode(subject string) (model.RequestID, bool) {
	m := pattern.FindStringSubmatch(subject)
	if m == nil {
		return "", false
	}
	return model.RequestID(m[1]), true
}
