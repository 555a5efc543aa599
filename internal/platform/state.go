package platform

import (
	"crypto/rand"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/multiuploader/pkg/models"
)

// StateTTL is how long a user has to finish the platform consent screen
const StateTTL = 10 * time.Minute

const stateIssuer = "multiuploader-oauth-state"

// stateSigner mints and checks the OAuth state parameter. A state is an HS256
// token naming the user as subject and the platform as audience, so it cannot
// be forged without the secret or replayed against another platform.
type stateSigner struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

func newStateSigner(secret []byte, now func() time.Time) *stateSigner {
	if len(secret) == 0 {
		// Only usable within this process
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic(fmt.Sprintf("failed to generate state secret: %v", err))
		}
	}
	return &stateSigner{
		secret: secret,
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuer(stateIssuer),
			jwt.WithTimeFunc(now),
		),
	}
}

func (s *stateSigner) sign(userID string, p models.Platform) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    stateIssuer,
		Subject:   userID,
		Audience:  jwt.ClaimStrings{string(p)},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(StateTTL)),
	}

	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign OAuth state: %w", err)
	}
	return state, nil
}

func (s *stateSigner) verify(state string, p models.Platform) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, err := s.parser.ParseWithClaims(state, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}); err != nil {
		return "", err
	}
	if !slices.Contains(claims.Audience, string(p)) {
		return "", fmt.Errorf("state was issued for %v", claims.Audience)
	}
	return claims.Subject, nil
}
