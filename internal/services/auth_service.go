package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"tradehub/internal/errs"
	"tradehub/internal/mail"
	"tradehub/internal/models"
	"tradehub/internal/repositories"
)

const (
	DefaultTokenTTL   = 7 * 24 * time.Hour
	DefaultOTPTTL     = 10 * time.Minute
	otpDigits         = 6
	minPasswordLength = 8
	maxTrackedEmails  = 10000
	// MaxOTPAttempts wrong guesses burn the current reset code.
	MaxOTPAttempts = 5
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
var ErrInvalidCredentials = errs.New(errs.ErrUnauthorized, "invalid credentials")

var errInvalidOTP = errs.New(errs.ErrInvalidOTP, "invalid or expired code")

// AuthConfig tunes token and reset code lifetimes.
type AuthConfig struct {
	JWTSecret            string
	TokenTTL             time.Duration
	OTPTTL               time.Duration
	ResetRequestsPerHour int
}

// AuthService handles registration, login, session tokens and password resets.
type AuthService struct {
	users     repositories.UserRepository
	otps      repositories.OTPRepository
	mailer    mail.Sender
	templates *mail.Templates
	jwtSecret []byte
	tokenTTL  time.Duration
	otpTTL    time.Duration
	now       func() time.Time

	resetLimit rate.Limit
	resetBurst int
	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	failures   map[string]int
}

// NewAuthService creates a new AuthService.
func NewAuthService(users repositories.UserRepository, otps repositories.OTPRepository, mailer mail.Sender, templates *mail.Templates, cfg AuthConfig) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = DefaultOTPTTL
	}
	if cfg.ResetRequestsPerHour <= 0 {
		cfg.ResetRequestsPerHour = 5
	}
	return &AuthService{
		users:      users,
		otps:       otps,
		mailer:     mailer,
		templates:  templates,
		jwtSecret:  []byte(cfg.JWTSecret),
		tokenTTL:   cfg.TokenTTL,
		otpTTL:     cfg.OTPTTL,
		now:        time.Now,
		resetLimit: rate.Every(time.Hour / time.Duration(cfg.ResetRequestsPerHour)),
		resetBurst: cfg.ResetRequestsPerHour,
		limiters:   make(map[string]*rate.Limiter),
		failures:   make(map[string]int),
	}
}

// WithClock replaces the time source. Used by tests to move past expiry windows.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// RegisterInput is the registration form.
type RegisterInput struct {
	FirstName string          `json:"firstName" validate:"required,max=100"`
	LastName  string          `json:"lastName" validate:"required,max=100"`
	Email     string          `json:"email" validate:"required,email"`
	Phone     string          `json:"phone" validate:"max=50"`
	Country   string          `json:"country" validate:"max=100"`
	Password  string          `json:"password" validate:"required,min=8,max=72"`
	UserType  models.UserType `json:"userType" validate:"omitempty,oneof=buyer supplier"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Claims are the identity fields carried by a session token.
type Claims struct {
	UserID string
	Email  string
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.UserType == "" {
		in.UserType = models.UserTypeBuyer
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, errs.New(errs.ErrConflict, "email already registered")
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		Country:      strings.TrimSpace(in.Country),
		PasswordHash: string(hash),
		UserType:     in.UserType,
		CreatedAt:    s.now().UTC(),
	}
	// The store's unique index settles concurrent registrations of one email.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	zap.L().Info("user registered", zap.String("user_id", user.ID), zap.String("user_type", string(user.UserType)))
	return s.signIn(user)
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// Login verifies credentials. Unknown emails still pay for a bcrypt comparison
// so timing does not reveal which emails are registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errs.Validation("Validation failed", map[string]string{
			"email":    "email and password are required",
			"password": "email and password are required",
		})
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		dummyHashOnce.Do(func() {
			dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
		})
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.signIn(user)
}

func (s *AuthService) signIn(user *models.User) (*AuthResult, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": user.ID,
		"email":  user.Email,
		"exp":    now.Add(s.tokenTTL).Unix(),
		"iat":    now.Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{Token: signed, User: user}, nil
}

// ValidateToken checks signature and expiry. Tokens cannot be revoked before they expire.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errs.New(errs.ErrUnauthorized, "invalid or expired token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errs.New(errs.ErrUnauthorized, "invalid or expired token")
	}
	userID, _ := mapClaims["userId"].(string)
	email, _ := mapClaims["email"].(string)
	if userID == "" {
		return nil, errs.New(errs.ErrUnauthorized, "invalid or expired token")
	}
	return &Claims{UserID: userID, Email: email}, nil
}

// Me returns the account behind an authenticated session.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// RequestPasswordReset issues and mails a reset code when email belongs to an
// account. The result never reveals whether it does.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := models.ValidateStruct(struct {
		Email string `json:"email" validate:"required,email"`
	}{email}); err != nil {
		return err
	}

	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	now := s.now()
	if !s.allowReset(email, now) {
		zap.L().Warn("password reset throttled", zap.String("email", email))
		return nil
	}

	code, err := GenerateOTP(otpDigits)
	if err != nil {
		return err
	}
	otp := &models.OTP{
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(s.otpTTL).UTC(),
		CreatedAt: now.UTC(),
	}
	if err := s.otps.Upsert(ctx, otp); err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}
	s.clearFailures(email)

	msg, err := s.templates.PasswordReset(mail.PasswordResetData{Recipient: email, Code: code, ExpiresIn: s.otpTTL})
	if err != nil {
		zap.L().Error("failed to render reset email", zap.String("email", email), zap.Error(err))
		return nil
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		// The code stays valid; the user can request another mail.
		zap.L().Error("failed to send reset email", zap.String("email", email), zap.Error(err))
	}
	return nil
}

// VerifyOTP reports whether code is the live reset code for email.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) error {
	_, err := s.checkOTP(ctx, normalizeEmail(email), strings.TrimSpace(code))
	return err
}

// ResetPassword replaces the password and consumes the reset code.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return errs.Validation("Validation failed", map[string]string{
			"password": fmt.Sprintf("password must be at least %d characters", minPasswordLength),
		})
	}
	email = normalizeEmail(email)
	if _, err := s.checkOTP(ctx, email, strings.TrimSpace(code)); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errInvalidOTP
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.otps.Delete(ctx, email); err != nil {
		return fmt.Errorf("failed to consume reset code: %w", err)
	}
	s.clearFailures(email)

	zap.L().Info("password reset", zap.String("user_id", user.ID))
	return nil
}

func (s *AuthService) checkOTP(ctx context.Context, email, code string) (*models.OTP, error) {
	if email == "" || code == "" {
		return nil, errInvalidOTP
	}
	otp, err := s.otps.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errInvalidOTP
		}
		return nil, fmt.Errorf("failed to load reset code: %w", err)
	}
	if otp.Expired(s.now()) {
		return nil, errInvalidOTP
	}
	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		if s.recordFailure(email) >= MaxOTPAttempts {
			if err := s.otps.Delete(ctx, email); err != nil {
				return nil, fmt.Errorf("failed to revoke reset code: %w", err)
			}
			s.clearFailures(email)
			zap.L().Warn("reset code revoked after repeated failures", zap.String("email", email))
		}
		return nil, errInvalidOTP
	}
	return otp, nil
}

func (s *AuthService) recordFailure(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.failures[email]; !ok && len(s.failures) >= maxTrackedEmails {
		s.failures = make(map[string]int)
	}
	s.failures[email]++
	return s.failures[email]
}

func (s *AuthService) clearFailures(email string) {
	s.mu.Lock()
	delete(s.failures, email)
	s.mu.Unlock()
}

func (s *AuthService) allowReset(email string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters[email]
	if !ok {
		if len(s.limiters) >= maxTrackedEmails {
			s.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(s.resetLimit, s.resetBurst)
		s.limiters[email] = limiter
	}
	return limiter.AllowN(now, 1)
}

// GenerateOTP returns a zero-padded numeric code of the given length from crypto/rand.
func GenerateOTP(digits int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
