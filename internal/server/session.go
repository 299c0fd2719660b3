package server

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/maxbolgarin/erro"
)

// sessionClaims is the payload of the session token the OAuth callback hands
// to the browser: the GitHub identity plus the upstream access token.
type sessionClaims struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Token     string `json:"token"`
	jwt.RegisteredClaims
}

func (s *Server) mintSession(username, avatarURL, accessToken string) (string, error) {
	claims := sessionClaims{
		Username:  username,
		AvatarURL: avatarURL,
		Token:     accessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.cfg.SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", erro.Wrap(err, "sign session token")
	}
	return token, nil
}

func (s *Server) verifySession(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, erro.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, erro.Wrap(err, "parse session token")
	}
	if !parsed.Valid {
		return nil, erro.New("invalid session token")
	}
	return claims, nil
}
