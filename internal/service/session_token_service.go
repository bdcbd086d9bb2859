package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionTokenService emite y valida el token que identifica una sesion de chat.
type SessionTokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	store  SessionTokenStore
}

type SessionClaims struct {
	SessionID string `json:"sid"`
	PersonaID string `json:"persona"`
	jwt.RegisteredClaims
}

var (
	ErrSessionTokenInvalid = errors.New("session token invalid")
	ErrSessionTokenExpired = errors.New("session token expired")
)

// NewSessionTokenService crea el servicio. Sin secret se genera uno aleatorio,
// por lo que los tokens no sobreviven a un reinicio (igual que las sesiones).
func NewSessionTokenService(secret string, ttl time.Duration, store SessionTokenStore) *SessionTokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if store == nil {
		store = NewMemorySessionTokenStore()
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = randomSecret()
	}
	return &SessionTokenService{
		secret: key,
		ttl:    ttl,
		issuer: "al-kul",
		store:  store,
	}
}

func (s *SessionTokenService) TTL() time.Duration {
	return s.ttl
}

func (s *SessionTokenService) Issue(sessionID, personaID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrSessionTokenInvalid
	}
	now := time.Now().UTC()
	jti := uuid.NewString()
	claims := SessionClaims{
		SessionID: sessionID,
		PersonaID: personaID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	if err := s.store.Store(jti, sessionID, s.ttl); err != nil {
		return "", err
	}
	return signed, nil
}

func (s *SessionTokenService) Parse(token string) (SessionClaims, error) {
	if strings.TrimSpace(token) == "" {
		return SessionClaims{}, ErrSessionTokenInvalid
	}
	claims, err := s.parseToken(token)
	if err != nil {
		return SessionClaims{}, err
	}
	if !s.isValidClaims(claims) {
		return SessionClaims{}, ErrSessionTokenInvalid
	}
	ok, err := s.store.Exists(claims.ID)
	if err != nil || !ok {
		return SessionClaims{}, ErrSessionTokenInvalid
	}
	return claims, nil
}

func (s *SessionTokenService) Revoke(claims SessionClaims) error {
	if claims.ID == "" {
		return ErrSessionTokenInvalid
	}
	return s.store.Revoke(claims.ID)
}

func (s *SessionTokenService) parseToken(tokenString string) (SessionClaims, error) {
	var claims SessionClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrSessionTokenExpired
		}
		return SessionClaims{}, ErrSessionTokenInvalid
	}
	return claims, nil
}

func (s *SessionTokenService) isValidClaims(claims SessionClaims) bool {
	if strings.TrimSpace(claims.SessionID) == "" || claims.ID == "" {
		return false
	}
	if claims.Subject != claims.SessionID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}

func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read no falla en plataformas soportadas
		panic(err)
	}
	return []byte(hex.EncodeToString(buf))
}
