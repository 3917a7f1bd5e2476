package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"labbooking/internal/domain"
	"labbooking/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	if args.Error(0) == nil {
		u.ID = 10
	}
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) GenerateToken(userID int64, username, role string) (string, error) {
	args := m.Called(userID, username, role)
	return args.String(0), args.Error(1)
}

func TestService_Register(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewService(users, new(MockTokenIssuer), time.Hour, nil)

	users.On("ExistsByUsername", mock.Anything, "alice").Return(false, nil)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Username == "alice" && u.Role == domain.RoleStudent &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret1")) == nil
	})).Return(nil)

	u, err := svc.Register(context.Background(), RegisterRequest{Username: " alice ", Password: "secret1", Role: "Student"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), u.ID)
	users.AssertExpectations(t)
}

func TestService_Register_Rejections(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewService(users, new(MockTokenIssuer), time.Hour, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{Username: "root", Password: "secret1", Role: "admin"})
	assert.ErrorIs(t, err, ErrValidation)

	users.On("ExistsByUsername", mock.Anything, "bob").Return(true, nil)
	_, err = svc.Register(ctx, RegisterRequest{Username: "bob", Password: "secret1", Role: "teacher"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	users.On("ExistsByUsername", mock.Anything, "carol").Return(false, nil)
	users.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicate)
	_, err = svc.Register(ctx, RegisterRequest{Username: "carol", Password: "secret1", Role: "teacher"})
	assert.ErrorIs(t, err, ErrUsernameTaken, "a racing insert surfaces as taken")
}

func TestService_Register_PasswordOverBcryptLimit(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewService(users, new(MockTokenIssuer), time.Hour, nil)

	// 30 characters but 90 bytes.
	_, err := svc.Register(context.Background(), RegisterRequest{
		Username: "dave", Password: strings.Repeat("€", 30), Role: "student",
	})
	assert.ErrorIs(t, err, ErrValidation)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	users.On("ExistsByUsername", mock.Anything, "erin").Return(false, nil)
	users.On("Create", mock.Anything, mock.Anything).Return(nil)
	_, err = svc.Register(context.Background(), RegisterRequest{
		Username: "erin", Password: strings.Repeat("a", 72), Role: "student",
	})
	assert.NoError(t, err)
}

func TestService_Login(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	alice := &domain.User{ID: 1, Username: "alice", PasswordHash: hash, Role: domain.RoleTeacher}

	users := new(MockUserRepository)
	tokens := new(MockTokenIssuer)
	svc := NewService(users, tokens, 2*time.Hour, nil)
	ctx := context.Background()

	users.On("GetByUsername", mock.Anything, "alice").Return(alice, nil)
	users.On("GetByUsername", mock.Anything, "nobody").Return(nil, gorm.ErrRecordNotFound)
	tokens.On("GenerateToken", int64(1), "alice", "teacher").Return("tok", nil)

	res, err := svc.Login(ctx, LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "tok", res.AccessToken)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, int64(7200), res.ExpiresIn)

	_, err = svc.Login(ctx, LoginRequest{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Username: "nobody", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Me(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewService(users, nil, time.Hour, nil)
	users.On("GetByID", mock.Anything, int64(5)).Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.Me(context.Background(), 5)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
