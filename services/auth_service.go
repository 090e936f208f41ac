package services

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"laundry-backend/apperr"
	"laundry-backend/models"
	"laundry-backend/utils"
)

// AuthService handles registration and login.
type AuthService struct {
	db *gorm.DB
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a customer account. Staff accounts are provisioned by
// a super admin, not through this endpoint.
func (s *AuthService) Register(in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.Conflict("email is already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: string(hashed),
		Phone:    in.Phone,
		Role:     models.RoleCustomer,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials and issues a signed token.
func (s *AuthService) Login(in LoginInput) (string, *models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, apperr.Unauthorized("invalid email or password")
	}
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)) != nil {
		return "", nil, apperr.Unauthorized("invalid email or password")
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}
