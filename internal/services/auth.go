package services

import (
	"strings"
	"time"

	"github.com/huangang/sqldesk/internal/config"
	"github.com/huangang/sqldesk/internal/models"
	"github.com/huangang/sqldesk/internal/utils"
	"gorm.io/gorm"
)

const seedAdminEmail = "admin@localhost"

type AuthService struct {
	db        *gorm.DB
	jwtConfig *config.JWTConfig
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{db: db, jwtConfig: jwtCfg}
}

type RegisterRequest struct {
	Name          string  `json:"name" binding:"required"`
	Email         string  `json:"email" binding:"required,email"`
	Password      string  `json:"password" binding:"required,min=6"`
	FacultyNumber *string `json:"faculty_number"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string       `json:"token"`
	User     *models.User `json:"user"`
	ExpireAt time.Time    `json:"expire_at"`
}

// Register creates a local account and signs it in. The very first account
// becomes an admin so a fresh install can be bootstrapped without seeding.
func (s *AuthService) Register(req *RegisterRequest) (*LoginResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:          name,
		Email:         email,
		FacultyNumber: req.FacultyNumber,
		Password:      hashed,
		Role:          models.RoleUser,
		IsActive:      true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrEmailTaken
		}

		var total int64
		if err := tx.Model(&models.User{}).Count(&total).Error; err != nil {
			return err
		}
		if total == 0 {
			user.Role = models.RoleAdmin
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return s.issue(&user)
}

// Login authenticates by email and password and returns a JWT.
func (s *AuthService) Login(req *LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.Model(&user).Update("last_login", now).Error; err != nil {
		return nil, err
	}

	return s.issue(&user)
}

func (s *AuthService) issue(user *models.User) (*LoginResponse, error) {
	token, err := utils.GenerateToken(user.ID, user.Email, user.Role, s.jwtConfig.ExpireHour)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		Token:    token,
		User:     user,
		ExpireAt: time.Now().Add(time.Duration(s.jwtConfig.ExpireHour) * time.Hour),
	}, nil
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateAdminIfNotExists seeds admin@localhost when the store has no admin.
func (s *AuthService) CreateAdminIfNotExists(password string) error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		Name:     "Administrator",
		Email:    seedAdminEmail,
		Password: hashed,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	return s.db.Create(&admin).Error
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

func (s *AuthService) ChangePassword(userID uint, req *ChangePasswordRequest) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return ErrWrongPassword
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.db.Model(user).Update("password", hashed).Error
}
