package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost стандартная сложность bcrypt
	DefaultBcryptCost = 12
	// MaxPasswordLength ограничение bcrypt на длину входа в байтах
	MaxPasswordLength = 72
)

var (
	ErrInvalidPassword  = errors.New("invalid password")
	ErrPasswordMismatch = errors.New("password mismatch")
)

// PasswordService хеширует и проверяет пароли ссылок
type PasswordService struct {
	cost int
}

// NewPasswordService создает сервис со стандартной сложностью
func NewPasswordService() *PasswordService {
	return NewPasswordServiceWithCost(DefaultBcryptCost)
}

// NewPasswordServiceWithCost создает новый сервис с заданной сложностью.
// Значения вне допустимого диапазона bcrypt заменяются на стандартное.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordService{
		cost: cost,
	}
}

// HashPassword хеширует пароль с использованием bcrypt
func (s *PasswordService) HashPassword(password string) (string, error) {
	if err := IsValidPassword(password); err != nil {
		return "", err
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// VerifyPassword сравнивает пароль с хешем за постоянное время
func (s *PasswordService) VerifyPassword(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// IsValidPassword проверяет пароль ссылки: непустой и не длиннее лимита bcrypt
func IsValidPassword(password string) error {
	if len(password) == 0 || len(password) > MaxPasswordLength {
		return ErrInvalidPassword
	}
	return nil
}
