package services

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/alvarovalenzuelac/presuapp/internal/config"
	apperrors "github.com/alvarovalenzuelac/presuapp/internal/errors"
	"github.com/alvarovalenzuelac/presuapp/internal/models"
)

const (
	maxFailedLogins = 3
	lockoutDuration = 15 * time.Minute
)

// userService handles user-related business logic.
type userService struct {
	db           *gorm.DB
	alertService AlertServicer
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB, alertService AlertServicer) UserServicer {
	return &userService{db: db, alertService: alertService}
}

// CreateUser creates a new user with a hashed password. Phone is optional;
// when present it is normalized and must be unique across users.
func (s *userService) CreateUser(email, password, firstName, lastName, phone string) (*models.User, error) {
	var existing models.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, apperrors.ErrDuplicateEmail
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		IsActive:  true,
	}

	if phone != "" {
		normalized := normalizePhone(phone)
		if err := s.db.Where("phone = ?", normalized).First(&existing).Error; err == nil {
			return nil, apperrors.ErrDuplicatePhone
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		user.Phone = &normalized
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.Password = string(hashed)

	if err := s.db.Create(user).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *userService) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// VerifyPassword checks whether the given password matches the user's hash.
func (s *userService) VerifyPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

// AttemptLogin verifies credentials with lockout tracking. Three consecutive
// failures lock the account for fifteen minutes and emit an alert; a
// successful login resets the counter. While locked, even correct
// credentials are rejected.
func (s *userService) AttemptLogin(email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.IsLocked() {
		return nil, apperrors.ErrAccountLocked
	}

	if !s.VerifyPassword(user, password) {
		if err := s.recordFailedLogin(user); err != nil {
			return nil, err
		}
		if user.IsLocked() {
			return nil, apperrors.ErrAccountLocked
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	now := time.Now()
	updates := map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_at":         now,
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	return user, nil
}

// recordFailedLogin bumps the failure counter and applies the lockout once
// the threshold is reached.
func (s *userService) recordFailedLogin(user *models.User) error {
	user.FailedLoginAttempts++
	updates := map[string]interface{}{
		"failed_login_attempts": user.FailedLoginAttempts,
	}

	if user.FailedLoginAttempts >= maxFailedLogins {
		lockedUntil := time.Now().Add(lockoutDuration)
		user.LockedUntil = &lockedUntil
		updates["locked_until"] = lockedUntil
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if user.LockedUntil != nil {
		_, err := s.alertService.Emit(user.ID,
			"Cuenta bloqueada temporalmente",
			"Detectamos 3 intentos fallidos de inicio de sesión. Tu cuenta quedó bloqueada por 15 minutos.")
		if err != nil {
			return err
		}
	}

	return nil
}

// ResolveUserByPhone finds the user owning an inbound phone number. Numbers
// arrive from the messaging webhook without a consistent format, so several
// candidates are tried: as-is, with a leading "+", and with the configured
// country prefix prepended.
func (s *userService) ResolveUserByPhone(phone string) (*models.User, error) {
	phone = normalizePhone(phone)
	if phone == "" {
		return nil, apperrors.ErrUserNotFound
	}

	prefix := config.Get().PhoneCountryPrefix
	candidates := []string{phone, "+" + phone}
	if prefix != "" && !strings.HasPrefix(phone, prefix) {
		candidates = append(candidates, prefix+phone, "+"+prefix+phone)
	}

	var user models.User
	if err := s.db.Where("phone IN ?", candidates).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// StoreRefreshTokenHash persists the hash of the user's current refresh token.
func (s *userService) StoreRefreshTokenHash(userID, tokenHash string) error {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("refresh_token_hash", tokenHash)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// GetRefreshTokenHash retrieves the stored refresh token hash for a user.
func (s *userService) GetRefreshTokenHash(userID string) (string, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return "", err
	}
	return user.RefreshTokenHash, nil
}

// normalizePhone strips spaces and dashes from a phone number.
func normalizePhone(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "")
	return replacer.Replace(strings.TrimSpace(phone))
}
