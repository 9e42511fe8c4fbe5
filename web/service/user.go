package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/recipebox/recipebox/database"
	"github.com/recipebox/recipebox/database/model"
	"github.com/recipebox/recipebox/logger"
	"github.com/recipebox/recipebox/util/crypto"

	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// Register validates the credentials and stores a new non-admin user.
func (s *UserService) Register(username, password string) (*model.User, error) {
	username, err := validateRegistration(username, password)
	if err != nil {
		return nil, err
	}

	// the seeded admin account name stays reserved even before seeding
	if strings.EqualFold(username, model.AdminUsername) {
		return nil, ErrUsernameTaken
	}
	exists, err := s.usernameExists(username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameTaken
	}

	hash, err := crypto.HashPasswordAsBcrypt(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.DB.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *UserService) usernameExists(username string) (bool, error) {
	var count int64
	err := s.DB.Model(&model.User{}).
		Where("username = ?", username).
		Count(&count).
		Error
	if err != nil {
		return false, fmt.Errorf("lookup username: %w", err)
	}
	return count > 0, nil
}

// CheckUser returns the user matching username and password. Unknown users
// and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) CheckUser(username, password string) (*model.User, error) {
	user := &model.User{}
	err := s.DB.Model(model.User{}).
		Where("username = ?", username).
		First(user).
		Error
	if database.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		logger.Warning("check user err:", err)
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !crypto.CheckPasswordHash(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// CreateAdmin creates an admin account, or promotes and resets the password
// of an existing account with the same name.
func (s *UserService) CreateAdmin(username, password string) (*model.User, error) {
	username, err := validateRegistration(username, password)
	if err != nil {
		return nil, err
	}
	hash, err := crypto.HashPasswordAsBcrypt(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{}
	err = s.DB.Model(model.User{}).Where("username = ?", username).First(user).Error
	if database.IsNotFound(err) {
		user.Username = username
		user.PasswordHash = hash
		user.IsAdmin = true
		if err := s.DB.Create(user).Error; err != nil {
			return nil, fmt.Errorf("create admin: %w", err)
		}
		return user, nil
	} else if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	user.PasswordHash = hash
	user.IsAdmin = true
	if err := s.DB.Save(user).Error; err != nil {
		return nil, fmt.Errorf("update admin: %w", err)
	}
	return user, nil
}
