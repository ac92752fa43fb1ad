package echoapi

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/actor"
)

const (
	contextTokenKey = "userToken"
	contextActorKey = "actor"
)

// Claims represents the authorization claims transmitted via a JWT.
// Tokens are issued by the school's identity provider; Subject is the actor ID.
type Claims struct {
	jwt.StandardClaims
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	SchoolID string `json:"school_id,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.Server.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func NewClaims(conf *core.Config, a actor.Actor, schoolID string) *Claims {
	now := core.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   a.ID,
			Audience:  "Gradebook",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:     a.Name,
		Email:    a.Email,
		Role:     a.Role,
		SchoolID: schoolID,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.Server.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextActor(ctx echo.Context) (actor.Actor, error) {
	if a, ok := ctx.Get(contextActorKey).(actor.Actor); ok {
		return a, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return actor.Actor{}, err
	}
	a := actor.New(claims.Subject, claims.Role)
	a.Name = claims.Name
	a.Email = claims.Email
	ctx.Set(contextActorKey, a)
	return a, nil
}
