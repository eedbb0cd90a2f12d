package auth

import (
	"strings"

	"github.com/dgrijalva/jwt-go"
)

// ClientType selects how tokens are delivered: cookies for web, response body only for the rest.
type ClientType string

const (
	ClientWeb    ClientType = "web"
	ClientMobile ClientType = "mobile"

	// ClientTypeHeader carries the ClientType of a request.
	ClientTypeHeader = "X-Client-Type"
)

// ParseClientType reads a ClientTypeHeader value. A missing header means ClientWeb.
// Unknown values are kept as is.
func ParseClientType(header string) ClientType {
	ct := strings.ToLower(strings.TrimSpace(header))
	if ct == "" {
		return ClientWeb
	}
	return ClientType(ct)
}

func (ct ClientType) IsWeb() bool { return ct == ClientWeb }

// Principal kinds
const (
	KindStaff   = "staff"
	KindStudent = "student"
)

// RoleStudent is the role of every student principal.
const RoleStudent = "student"

// TokenType tells access tokens from refresh tokens.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Principal is an authenticated identity: a staff member or a student.
type Principal struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Kind     string `json:"kind"`
	Role     string `json:"role"`
	IsStaff  bool   `json:"is_staff"`
	IsAdmin  bool   `json:"is_admin"`
	IsActive bool   `json:"is_active"`
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	TokenType  TokenType  `json:"token_type"`
	Kind       string     `json:"kind"`
	Role       string     `json:"role"`
	IsStaff    bool       `json:"is_staff"`
	IsAdmin    bool       `json:"is_admin"`
	ClientType ClientType `json:"client_type"`
}

func (c Claims) IsStudent() bool { return c.Kind == KindStudent }

// TokenPair is what a successful login returns.
type TokenPair struct {
	Access     string     `json:"access"`
	Refresh    string     `json:"refresh"`
	ClientType ClientType `json:"client_type"`
}

type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
