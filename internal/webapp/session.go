package webapp

import (
	"encoding/json"
	"net/http"
	"time"

	"visitsuite/internal/security"
)

const sessionCookieName = "visitsuite_session"

// session is the identity attached to a browser. It lives entirely inside an
// HMAC-signed cookie; the server keeps no session table, so a session stays
// valid until it expires or the cookie is cleared by logout.
type session struct {
	User      string `json:"user"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"exp"`
}

func (s *server) issueSessionCookie(w http.ResponseWriter, user, role string) error {
	expires := time.Now().Add(s.sessionTTL)
	payload, err := json.Marshal(session{User: user, Role: role, ExpiresAt: expires.Unix()})
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    security.SignPayload(s.secret, payload),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.sessionTTL.Seconds()),
		Expires:  expires,
	})
	return nil
}

// sessionFromRequest returns the request's session, or nil when the cookie
// is absent, tampered with, or expired.
func (s *server) sessionFromRequest(r *http.Request) *session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	payload, err := security.VerifyPayload(s.secret, cookie.Value)
	if err != nil {
		return nil
	}
	var sess session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil
	}
	if sess.User == "" || sess.Role == "" {
		return nil
	}
	if time.Now().Unix() >= sess.ExpiresAt {
		return nil
	}
	return &sess
}

func expireSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
