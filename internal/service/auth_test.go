package service_test // 测试包

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"interior-planboard/internal/domain"
	"interior-planboard/internal/repository"
	"interior-planboard/internal/repository/mocks"
	"interior-planboard/internal/service"
)

// --- 测试 Register 方法 ---

func TestAuthService_Register_Success(t *testing.T) {
	// Arrange: 准备 Mock 对象, Service 实例, 和测试数据
	mockUserRepo := new(mocks.UserRepository)
	jwtSecret := "very-secret-key"
	jwtExpiry := 1 // 1 小时过期
	authService, err := service.NewAuthService(mockUserRepo, jwtSecret, jwtExpiry)
	require.NoError(t, err, "创建 AuthService 不应失败")

	ctx := context.Background()
	username := "newbie"
	password := "StrongPass123"
	email := "newbie@example.com"

	// 设置 Mock 预期: Save 被调用时模拟保存成功，并填充 ID/时间戳
	mockUserRepo.On("Save", ctx, mock.MatchedBy(func(user *domain.User) bool {
		assert.Equal(t, username, user.Username)
		assert.Equal(t, email, user.Email)
		// 验证密码是否已哈希
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)), "密码应被正确哈希")
		return true
	})).
		Run(func(args mock.Arguments) { // 模拟数据库填充字段
			userArg := args.Get(1).(*domain.User)
			userArg.ID = 5
			userArg.CreatedAt = time.Now().Add(-time.Second)
			userArg.UpdatedAt = time.Now().Add(-time.Second)
		}).
		Return(nil).
		Once()

	// Act
	registeredUser, err := authService.Register(ctx, username, password, email)

	// Assert
	assert.NoError(t, err, "成功注册时不应有错误")
	require.NotNil(t, registeredUser, "成功注册时应返回用户对象")
	assert.Equal(t, uint(5), registeredUser.ID)
	assert.Equal(t, username, registeredUser.Username)
	assert.Equal(t, email, registeredUser.Email)
	assert.Empty(t, registeredUser.Password, "返回的用户密码应为空") // Service 应清除密码

	// Verify
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_SaveFails_DuplicateEntry(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)
	ctx := context.Background()

	// 设置 Mock 预期: Save 调用时模拟数据库返回唯一约束错误
	mockUserRepo.On("Save", ctx, mock.AnythingOfType("*domain.User")).Return(repository.ErrDuplicateEntry).Once()

	// Act
	_, err := authService.Register(ctx, "existingUser", "password", "email@test.com")

	// Assert
	require.Error(t, err, "用户名已存在时应返回错误")
	assert.True(t, errors.Is(err, service.ErrRegistrationFailed), "错误类型应为 ErrRegistrationFailed")

	// Verify
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_EmptyCredentials(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "secret", 1)

	_, err := authService.Register(context.Background(), "", "password", "")
	require.Error(t, err)

	// 明确断言 Save 没有被调用
	mockUserRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// --- 测试 Login 方法 ---

func TestAuthService_Login_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 24)
	ctx := context.Background()
	username := "testuser"
	password := "password123"
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	userInDb := &domain.User{ID: 1, Username: username, Password: string(hashedPassword)}

	// 设置 Mock 预期: FindByUsername 成功找到用户
	mockUserRepo.On("FindByUsername", ctx, username).Return(userInDb, nil).Once()

	// Act
	token, err := authService.Login(ctx, username, password)

	// Assert
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	// Verify
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 24)
	ctx := context.Background()
	username := "nonexistent"

	mockUserRepo.On("FindByUsername", ctx, username).Return(nil, repository.ErrUserNotFound).Once()

	// Act
	token, err := authService.Login(ctx, username, "password")

	// Assert
	require.Error(t, err)
	assert.Empty(t, token)
	assert.True(t, errors.Is(err, service.ErrAuthenticationFailed))

	// Verify
	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_IncorrectPassword(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService, _ := service.NewAuthService(mockUserRepo, "test-secret", 24)
	ctx := context.Background()
	username := "testuser"
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	userInDb := &domain.User{ID: 1, Username: username, Password: string(hashedPassword)}

	mockUserRepo.On("FindByUsername", ctx, username).Return(userInDb, nil).Once()

	// Act
	token, err := authService.Login(ctx, username, "wrongpassword")

	// Assert
	require.Error(t, err)
	assert.Empty(t, token)
	assert.True(t, errors.Is(err, service.ErrAuthenticationFailed))

	// Verify
	mockUserRepo.AssertExpectations(t)
}
