package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type UserRole string

const (
	RoleSuperAdmin    UserRole = "SUPER_ADMIN"
	RoleMerchantOwner UserRole = "MERCHANT_OWNER"
	RoleMerchantStaff UserRole = "MERCHANT_STAFF"
)

var (
	ErrTokenRequired = errors.New("token required")
	ErrTokenExpired  = errors.New("token expired")
)

type Claims struct {
	UserID      string   `json:"userId"`
	SessionID   string   `json:"sessionId"`
	Role        UserRole `json:"role"`
	Email       string   `json:"email"`
	MerchantID  *string  `json:"merchantId,omitempty"`
	Name        *string  `json:"name,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// IsMerchant reports whether the token belongs to merchant staff or an owner.
func (c *Claims) IsMerchant() bool {
	return c.Role == RoleMerchantOwner || c.Role == RoleMerchantStaff
}

func (c *Claims) HasPermission(perm StaffPermission) bool {
	if c.Role != RoleMerchantStaff {
		return true
	}
	for _, p := range c.Permissions {
		if p == string(perm) {
			return true
		}
	}
	return false
}

func ParseBearerToken(authHeader string) string {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// TokenFromQuery accepts either a raw token or a "Bearer <token>" value.
func TokenFromQuery(value string) string {
	value = strings.TrimSpace(value)
	if token := ParseBearerToken(value); token != "" {
		return token
	}
	if strings.Contains(value, " ") {
		return ""
	}
	return value
}

func VerifyAccessToken(tokenString string, secret string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenRequired
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// IssueAccessToken signs claims with HS256 and an expiry ttl from now.
func IssueAccessToken(claims Claims, secret string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret required")
	}
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// MerchantToken is a convenience for dashboards and local tooling.
func MerchantToken(merchantID int64, role UserRole, permissions []string, secret string, ttl time.Duration) (string, error) {
	id := fmt.Sprint(merchantID)
	return IssueAccessToken(Claims{
		UserID:      "0",
		SessionID:   "0",
		Role:        role,
		MerchantID:  &id,
		Permissions: permissions,
	}, secret, ttl)
}

// MerchantIDValue parses the merchant id carried by the token.
func (c *Claims) MerchantIDValue() (int64, error) {
	if c.MerchantID == nil {
		return 0, errors.New("merchant id missing")
	}
	var out int64
	if _, err := fmt.Sscan(*c.MerchantID, &out); err != nil {
		return 0, fmt.Errorf("merchant id: %w", err)
	}
	if out <= 0 {
		return 0, errors.New("merchant id must be positive")
	}
	return out, nil
}
