package auth

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/staff"
	"github.com/nojinx/ssm/core/student"
)

var (
	// errors
	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrInvalidToken       = errors.New("token is invalid or expired")
	ErrWrongTokenType     = errors.New("token has wrong type")
	ErrTokenBlacklisted   = errors.New("token is blacklisted")

	NowFunc = time.Now // mockable
)

// Blacklist keeps revoked refresh tokens until they expire.
type Blacklist interface {
	// Add blacklists jti until expiresAt. Adding a jti twice is a no-op.
	Add(ctx context.Context, jti string, expiresAt time.Time) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// Service issues, parses, refreshes and revokes JWTs for staff and students.
type Service struct {
	appName   string
	key       []byte
	conf      core.AuthConfig
	staffSvc  staff.ServiceInterface
	stdSvc    student.ServiceInterface
	blacklist Blacklist
}

func NewService(conf *core.Config, staffSvc staff.ServiceInterface, stdSvc student.ServiceInterface, blacklist Blacklist) *Service {
	return &Service{
		appName:   conf.AppName,
		key:       []byte(conf.SecretKey),
		conf:      conf.Auth,
		staffSvc:  staffSvc,
		stdSvc:    stdSvc,
		blacklist: blacklist,
	}
}

// RefreshLifetime returns how long a refresh token issued to ct lives.
func (svc *Service) RefreshLifetime(ct ClientType) time.Duration {
	if ct.IsWeb() {
		return svc.conf.WebRefreshTokenLifetime
	}
	return svc.conf.MobileRefreshTokenLifetime
}

func (svc *Service) AccessLifetime() time.Duration {
	return svc.conf.AccessTokenLifetime
}

// Authenticate finds the account `username` belongs to (staff first, then students) and checks its password.
func (svc *Service) Authenticate(ctx context.Context, username, pwd string) (Principal, error) {
	username = core.CleanString(username)

	st, err := svc.staffSvc.Get(ctx, username)
	switch errors.Cause(err) {
	case nil:
		if err := st.CheckPassword(pwd); err != nil {
			return Principal{}, ErrInvalidCredentials
		}
		if !st.IsActive {
			return Principal{}, ErrAccountDeactivated
		}
		return StaffPrincipal(st), nil
	case staff.ErrNotFound: // try students
	default:
		return Principal{}, errors.Wrap(err, "finding staff")
	}

	std, err := svc.stdSvc.Get(ctx, username)
	switch errors.Cause(err) {
	case nil:
		if err := std.CheckPassword(pwd); err != nil {
			return Principal{}, ErrInvalidCredentials
		}
		if !std.IsActive {
			return Principal{}, ErrAccountDeactivated
		}
		return StudentPrincipal(std), nil
	case student.ErrNotFound:
		return Principal{}, ErrInvalidCredentials
	default:
		return Principal{}, errors.Wrap(err, "finding student")
	}
}

// Login authenticates the credentials and issues a TokenPair for ct.
func (svc *Service) Login(ctx context.Context, creds Credentials, ct ClientType) (Principal, TokenPair, error) {
	p, err := svc.Authenticate(ctx, creds.Username, creds.Password)
	if err != nil {
		return Principal{}, TokenPair{}, err
	}
	pair, err := svc.Issue(ctx, p, ct)
	if err != nil {
		return Principal{}, TokenPair{}, err
	}
	return p, pair, nil
}

// Issue creates a new access and refresh token pair for p, and updates p's last login.
func (svc *Service) Issue(ctx context.Context, p Principal, ct ClientType) (TokenPair, error) {
	now := NowFunc()

	refresh, err := svc.sign(svc.newClaims(p, RefreshToken, ct, now, svc.RefreshLifetime(ct)))
	if err != nil {
		return TokenPair{}, errors.Wrap(err, "signing refresh token")
	}
	access, err := svc.sign(svc.newClaims(p, AccessToken, ct, now, svc.conf.AccessTokenLifetime))
	if err != nil {
		return TokenPair{}, errors.Wrap(err, "signing access token")
	}

	if err := svc.setLastLogin(ctx, p); err != nil {
		return TokenPair{}, errors.Wrap(err, "setting last login")
	}
	return TokenPair{Access: access, Refresh: refresh, ClientType: ct}, nil
}

// Parse validates a signed token (HS256 signature, expiry and type) and returns its claims.
// Refresh tokens must not be blacklisted.
func (svc *Service) Parse(ctx context.Context, token string, want TokenType) (*Claims, error) {
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return svc.key, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != want {
		return nil, ErrWrongTokenType
	}

	if want == RefreshToken {
		blacklisted, err := svc.blacklist.Contains(ctx, claims.Id)
		if err != nil {
			return nil, errors.Wrap(err, "checking token blacklist")
		}
		if blacklisted {
			return nil, ErrTokenBlacklisted
		}
	}
	return claims, nil
}

// Refresh issues a new access token from a valid refresh token, carrying over its principal and client type.
func (svc *Service) Refresh(ctx context.Context, refreshToken string) (string, *Claims, error) {
	claims, err := svc.Parse(ctx, refreshToken, RefreshToken)
	if err != nil {
		return "", nil, err
	}

	p, err := svc.Principal(ctx, claims)
	if err != nil {
		return "", nil, err
	}
	if !p.IsActive {
		return "", nil, ErrAccountDeactivated
	}

	accessClaims := svc.newClaims(p, AccessToken, claims.ClientType, NowFunc(), svc.conf.AccessTokenLifetime)
	access, err := svc.sign(accessClaims)
	if err != nil {
		return "", nil, errors.Wrap(err, "signing access token")
	}
	return access, accessClaims, nil
}

// Revoke blacklists a refresh token until its expiry. Revoking twice is a no-op.
func (svc *Service) Revoke(ctx context.Context, refreshToken string) (*Claims, error) {
	claims, err := svc.Parse(ctx, refreshToken, RefreshToken)
	switch errors.Cause(err) {
	case nil:
	case ErrTokenBlacklisted:
		return nil, nil
	default:
		return nil, err
	}
	if err := svc.blacklist.Add(ctx, claims.Id, time.Unix(claims.ExpiresAt, 0)); err != nil {
		return nil, errors.Wrap(err, "blacklisting token")
	}
	return claims, nil
}

// Principal loads the current state of the principal claims were issued to.
// A principal that no longer exists yields ErrInvalidToken.
func (svc *Service) Principal(ctx context.Context, claims *Claims) (Principal, error) {
	switch claims.Kind {
	case KindStaff:
		st, err := svc.staffSvc.Get(ctx, claims.Subject)
		if err != nil {
			if errors.Cause(err) == staff.ErrNotFound {
				return Principal{}, ErrInvalidToken
			}
			return Principal{}, errors.Wrap(err, "finding staff")
		}
		return StaffPrincipal(st), nil
	case KindStudent:
		std, err := svc.stdSvc.Get(ctx, claims.Subject)
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				return Principal{}, ErrInvalidToken
			}
			return Principal{}, errors.Wrap(err, "finding student")
		}
		return StudentPrincipal(std), nil
	}
	return Principal{}, ErrInvalidToken
}

func (svc *Service) setLastLogin(ctx context.Context, p Principal) error {
	if p.Kind == KindStudent {
		return svc.stdSvc.SetLastLogin(ctx, p.ID)
	}
	return svc.staffSvc.SetLastLogin(ctx, p.ID)
}

func (svc *Service) newClaims(p Principal, tt TokenType, ct ClientType, now time.Time, lifetime time.Duration) *Claims {
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    svc.appName,
			Subject:   p.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(lifetime).Unix(),
		},
		TokenType:  tt,
		Kind:       p.Kind,
		Role:       p.Role,
		IsStaff:    p.IsStaff,
		IsAdmin:    p.IsAdmin,
		ClientType: ct,
	}
}

// sign generates a signed JWT token string representing claims.
func (svc *Service) sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.key)
}

func StaffPrincipal(s staff.Staff) Principal {
	return Principal{
		ID:       s.ID,
		Name:     s.Name,
		Email:    s.Email,
		Kind:     KindStaff,
		Role:     s.Role,
		IsStaff:  true,
		IsAdmin:  s.IsAdmin,
		IsActive: s.IsActive,
	}
}

func StudentPrincipal(s student.Student) Principal {
	return Principal{
		ID:       s.RollNumber,
		Name:     s.Name,
		Email:    s.Email,
		Kind:     KindStudent,
		Role:     RoleStudent,
		IsActive: s.IsActive,
	}
}
