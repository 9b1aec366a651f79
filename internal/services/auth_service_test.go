package services_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tradehub/internal/errs"
	"tradehub/internal/mail"
	"tradehub/internal/models"
	"tradehub/internal/repositories"
	"tradehub/internal/services"
)

const testJWTSecret = "test_jwt_secret"

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// captureSender records sent messages instead of delivering them.
type captureSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *captureSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

var codePattern = regexp.MustCompile(`Your code: (\d{6})`)

func (s *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sent, "no mail was sent")
	m := codePattern.FindStringSubmatch(s.sent[len(s.sent)-1].TextBody)
	require.Len(t, m, 2)
	return m[1]
}

type authFixture struct {
	service *services.AuthService
	users   repositories.UserRepository
	otps    repositories.OTPRepository
	mailer  *captureSender
	now     time.Time
}

func newAuthFixture(t *testing.T, users repositories.UserRepository) *authFixture {
	t.Helper()
	templates, err := mail.NewTemplates()
	require.NoError(t, err)

	f := &authFixture{
		users:  users,
		otps:   repositories.NewMemoryOTPRepository(),
		mailer: &captureSender{},
		now:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = services.NewAuthService(f.users, f.otps, f.mailer, templates, services.AuthConfig{
		JWTSecret: testJWTSecret,
	}).WithClock(func() time.Time { return f.now })
	return f
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func validRegistration() services.RegisterInput {
	return services.RegisterInput{
		FirstName: "Ayu",
		LastName:  "Lestari",
		Email:     "Buyer@Example.com ",
		Phone:     "+62 812 0000",
		Country:   "Indonesia",
		Password:  "password123",
	}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	f := newAuthFixture(t, mockRepo)

	mockRepo.On("GetByEmail", ctx, "buyer@example.com").Return(nil, errs.NotFound("user", "buyer@example.com")).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = "user-123"
	}).Return(nil).Once()

	result, err := f.service.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "buyer@example.com", result.User.Email)
	assert.Equal(t, models.UserTypeBuyer, result.User.UserType)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(result.User.PasswordHash), []byte("password123")))
	mockRepo.AssertExpectations(t)

	parser := jwt.Parser{SkipClaimsValidation: true}
	parsed, err := parser.Parse(result.Token, func(*jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "user-123", claims["userId"])
	assert.Equal(t, "buyer@example.com", claims["email"])
	assert.Equal(t, float64(f.now.Add(7*24*time.Hour).Unix()), claims["exp"])
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	f := newAuthFixture(t, mockRepo)

	mockRepo.On("GetByEmail", ctx, "buyer@example.com").Return(&models.User{ID: "1"}, nil).Once()

	_, err := f.service.Register(ctx, validRegistration())
	assert.ErrorIs(t, err, errs.ErrConflict)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	f := newAuthFixture(t, new(MockUserRepository))

	in := validRegistration()
	in.FirstName = ""
	in.Password = "short"
	_, err := f.service.Register(context.Background(), in)
	require.ErrorIs(t, err, errs.ErrValidation)
	fields := errs.Fields(err)
	assert.Contains(t, fields, "firstName")
	assert.Contains(t, fields, "password")
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	f := newAuthFixture(t, mockRepo)

	user := &models.User{ID: "user-123", Email: "buyer@example.com", PasswordHash: hashPassword(t, "password123")}
	mockRepo.On("GetByEmail", ctx, "buyer@example.com").Return(user, nil)
	mockRepo.On("GetByEmail", ctx, "nobody@example.com").Return(nil, errs.NotFound("user", "nobody@example.com"))

	_, wrongPassword := f.service.Login(ctx, "buyer@example.com", "wrongpassword")
	_, unknownEmail := f.service.Login(ctx, "nobody@example.com", "password123")

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, errs.StatusCode(wrongPassword), errs.StatusCode(unknownEmail))
	assert.ErrorIs(t, wrongPassword, errs.ErrUnauthorized)

	result, err := f.service.Login(ctx, " BUYER@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "user-123", result.User.ID)
}

func TestAuthService_ValidateToken(t *testing.T) {
	f := newAuthFixture(t, new(MockUserRepository))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "user-123",
		"email":  "buyer@example.com",
		"exp":    jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	claims, err := f.service.ValidateToken(validTokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "buyer@example.com", claims.Email)

	_, err = f.service.ValidateToken("invalid.token.string")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "user-123",
		"exp":    jwt.TimeFunc().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = f.service.ValidateToken(expiredTokenString)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	otherSecret, _ := token.SignedString([]byte("another_secret"))
	_, err = f.service.ValidateToken(otherSecret)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func newResetFixture(t *testing.T) *authFixture {
	t.Helper()
	users := repositories.NewMemoryUserRepository()
	require.NoError(t, users.Create(context.Background(), &models.User{
		ID:           "user-123",
		Email:        "buyer@example.com",
		PasswordHash: hashPassword(t, "password123"),
	}))
	return newAuthFixture(t, users)
}

func TestAuthService_OTPRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)

	require.NoError(t, f.service.RequestPasswordReset(ctx, "buyer@example.com"))
	code := f.mailer.lastCode(t)
	assert.Len(t, code, 6)

	assert.NoError(t, f.service.VerifyOTP(ctx, "buyer@example.com", code))

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	assert.ErrorIs(t, f.service.VerifyOTP(ctx, "buyer@example.com", wrong), errs.ErrInvalidOTP)

	f.now = f.now.Add(services.DefaultOTPTTL + time.Second)
	assert.ErrorIs(t, f.service.VerifyOTP(ctx, "buyer@example.com", code), errs.ErrInvalidOTP)
}

func TestAuthService_NewCodeSupersedesOld(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)

	require.NoError(t, f.service.RequestPasswordReset(ctx, "buyer@example.com"))
	first := f.mailer.lastCode(t)
	f.now = f.now.Add(time.Minute)
	require.NoError(t, f.service.RequestPasswordReset(ctx, "buyer@example.com"))
	second := f.mailer.lastCode(t)

	otp, err := f.otps.GetByEmail(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, second, otp.Code)
	if first != second {
		assert.ErrorIs(t, f.service.VerifyOTP(ctx, "buyer@example.com", first), errs.ErrInvalidOTP)
	}
}

func TestAuthService_RepeatedWrongCodesRevokeCode(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)

	require.NoError(t, f.service.RequestPasswordReset(ctx, "buyer@example.com"))
	code := f.mailer.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < services.MaxOTPAttempts-1; i++ {
		assert.ErrorIs(t, f.service.VerifyOTP(ctx, "buyer@example.com", wrong), errs.ErrInvalidOTP)
	}
	// One guess short of the limit the real code still works.
	require.NoError(t, f.service.VerifyOTP(ctx, "buyer@example.com", code))

	assert.ErrorIs(t, f.service.VerifyOTP(ctx, "buyer@example.com", wrong), errs.ErrInvalidOTP)
	_, err := f.otps.GetByEmail(ctx, "buyer@example.com")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, f.service.ResetPassword(ctx, "buyer@example.com", code, "new-password-1"), errs.ErrInvalidOTP)

	// A fresh code starts a fresh count.
	f.now = f.now.Add(time.Minute)
	require.NoError(t, f.service.RequestPasswordReset(ctx, "buyer@example.com"))
	code = f.mailer.lastCode(t)
	wrong = "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < services.MaxOTPAttempts-1; i++ {
		assert.ErrorIs(t, f.service.VerifyOTP(ctx, "buyer@example.com", wrong), errs.ErrInvalidOTP)
	}
	assert.NoError(t, f.service.VerifyOTP(ctx, "buyer@example.com", code))
}

func TestAuthService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)

	require.NoError(t, f.service.RequestPasswordReset(ctx, "buyer@example.com"))
	code := f.mailer.lastCode(t)

	err := f.service.ResetPassword(ctx, "buyer@example.com", code, "short")
	assert.ErrorIs(t, err, errs.ErrValidation)

	require.NoError(t, f.service.ResetPassword(ctx, "buyer@example.com", code, "new-password-1"))

	_, err = f.service.Login(ctx, "buyer@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	_, err = f.service.Login(ctx, "buyer@example.com", "new-password-1")
	assert.NoError(t, err)

	// Codes are single use.
	err = f.service.ResetPassword(ctx, "buyer@example.com", code, "another-password")
	assert.ErrorIs(t, err, errs.ErrInvalidOTP)
}

func TestAuthService_RequestPasswordResetUnknownEmail(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)

	require.NoError(t, f.service.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Empty(t, f.mailer.sent)
	_, err := f.otps.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAuthService_MailFailureKeepsCode(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)
	f.mailer.err = errors.New("smtp unavailable")

	require.NoError(t, f.service.RequestPasswordReset(ctx, "buyer@example.com"))
	code := f.mailer.lastCode(t)
	assert.NoError(t, f.service.VerifyOTP(ctx, "buyer@example.com", code))
}

func TestAuthService_ResetRequestsAreThrottled(t *testing.T) {
	ctx := context.Background()
	f := newResetFixture(t)

	for i := 0; i < 10; i++ {
		require.NoError(t, f.service.RequestPasswordReset(ctx, "buyer@example.com"))
	}
	// The default budget is five requests per hour.
	assert.Len(t, f.mailer.sent, 5)
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := services.GenerateOTP(6)
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, code)
	}
}
