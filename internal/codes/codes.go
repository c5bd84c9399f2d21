// Package codes generates and parses the public identifiers printed on badges and
// certificates.
//
//	USER-<userId>-<12 hex>     personal check-in code
//	EVENT-<eventId>-<8 hex>    legacy per-event kiosk code
//	CERT-<12 hex>              certificate number
//	VERIFY-<16 hex>            certificate verification code
//
// All hex tokens are uppercase.
package codes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	UserPrefix         = "USER-"
	EventPrefix        = "EVENT-"
	CertificatePrefix  = "CERT-"
	VerificationPrefix = "VERIFY-"

	UserTokenLen         = 12
	EventTokenLen        = 8
	CertificateTokenLen  = 12
	VerificationTokenLen = 16
)

type Kind int

const (
	KindUnknown Kind = iota
	KindUser
	KindEvent
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Payload is a parsed check-in code.
type Payload struct {
	Kind  Kind
	ID    string
	Token string
	Raw   string
}

func token(n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(hex[:n])
}

func UserQR(userID uuid.UUID) string {
	return fmt.Sprintf("%s%s-%s", UserPrefix, userID, token(UserTokenLen))
}

func EventQR(eventID uuid.UUID) string {
	return fmt.Sprintf("%s%s-%s", EventPrefix, eventID, token(EventTokenLen))
}

func CertificateNumber() string { return CertificatePrefix + token(CertificateTokenLen) }

func VerificationCode() string { return VerificationPrefix + token(VerificationTokenLen) }

// Parse classifies a scanned check-in code. The id part may itself contain dashes, so the
// token is taken from the last one.
func Parse(raw string) (Payload, error) {
	var (
		kind   Kind
		rest   string
		tokLen int
	)
	switch {
	case strings.HasPrefix(raw, UserPrefix):
		kind, rest, tokLen = KindUser, strings.TrimPrefix(raw, UserPrefix), UserTokenLen
	case strings.HasPrefix(raw, EventPrefix):
		kind, rest, tokLen = KindEvent, strings.TrimPrefix(raw, EventPrefix), EventTokenLen
	default:
		return Payload{}, errors.New("unrecognized code prefix")
	}

	i := strings.LastIndex(rest, "-")
	if i <= 0 {
		return Payload{}, fmt.Errorf("malformed %s code", kind)
	}
	id, tok := rest[:i], rest[i+1:]
	if !IsToken(tok, tokLen) {
		return Payload{}, fmt.Errorf("malformed %s code token", kind)
	}
	return Payload{Kind: kind, ID: id, Token: tok, Raw: raw}, nil
}

// IsToken reports whether s is exactly n uppercase hex characters.
func IsToken(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}
