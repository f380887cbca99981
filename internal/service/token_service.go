package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService emite y valida tokens JWT de acceso y refresh.
// Usa secretos independientes para que comprometer uno no permita forjar
// tokens del otro tipo. No persiste nada: el caller guarda resultados.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type TokenClaims struct {
	UserID    string `json:"userId"`
	UserType  string `json:"userType"`
	TokenType string `json:"tokenType,omitempty"`
	jwt.RegisteredClaims
}

var (
	// ErrTokenInvalid cubre firma, formato, issuer o tipo incorrectos.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired se distingue para que el caller pueda sugerir refresh.
	ErrTokenExpired = errors.New("token expired")
)

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        "cargolink",
	}
}

// GeneratePair emite access (corto) y refresh (largo, marcado con tokenType).
func (s *TokenService) GeneratePair(userID, userType string) (TokenPair, error) {
	if len(s.accessSecret) == 0 || len(s.refreshSecret) == 0 {
		return TokenPair{}, ErrTokenInvalid
	}
	now := time.Now().UTC()

	access, err := s.sign(s.accessSecret, userID, userType, "", now, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(s.refreshSecret, userID, userType, "refresh", now, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ParseAccessToken valida un access token contra el secreto de acceso.
func (s *TokenService) ParseAccessToken(token string) (TokenClaims, error) {
	claims, err := s.parse(s.accessSecret, token)
	if err != nil {
		return TokenClaims{}, err
	}
	if claims.TokenType == "refresh" {
		return TokenClaims{}, ErrTokenInvalid
	}
	return claims, nil
}

// ParseRefreshToken valida un refresh token; el caller ademas debe comparar
// el texto contra el refresh token guardado para el usuario, porque un login
// o refresh posterior invalida los anteriores.
func (s *TokenService) ParseRefreshToken(token string) (TokenClaims, error) {
	claims, err := s.parse(s.refreshSecret, token)
	if err != nil {
		return TokenClaims{}, err
	}
	if claims.TokenType != "refresh" {
		return TokenClaims{}, ErrTokenInvalid
	}
	return claims, nil
}

// GenerateOpaqueToken produce un token aleatorio de un solo uso para
// verificacion de email o reset de password.
func (s *TokenService) GenerateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *TokenService) sign(secret []byte, userID, userType, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	claims := TokenClaims{
		UserID:    userID,
		UserType:  userType,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *TokenService) parse(secret []byte, tokenString string) (TokenClaims, error) {
	if len(secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return TokenClaims{}, ErrTokenInvalid
	}
	var claims TokenClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, ErrTokenExpired
		}
		return TokenClaims{}, ErrTokenInvalid
	}
	if !s.validClaims(claims) {
		return TokenClaims{}, ErrTokenInvalid
	}
	return claims, nil
}

func (s *TokenService) validClaims(claims TokenClaims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	return claims.Issuer == s.issuer
}
