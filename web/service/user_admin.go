package service

import (
	"fmt"

	"github.com/recipebox/recipebox/database"
	"github.com/recipebox/recipebox/database/model"

	"gorm.io/gorm"
)

type UserAdminService struct {
	DB *gorm.DB
}

func NewUserAdminService(db *gorm.DB) *UserAdminService {
	return &UserAdminService{DB: db}
}

type UserDTO struct {
	Id        int    `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
}

func toDTO(u *model.User) UserDTO {
	return UserDTO{
		Id:        u.Id,
		Username:  u.Username,
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04"),
	}
}

// ListUsers returns every non-admin account ordered by id.
func (s *UserAdminService) ListUsers() ([]UserDTO, error) {
	var users []model.User
	if err := s.DB.Where("is_admin = ?", false).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]UserDTO, 0, len(users))
	for i := range users {
		out = append(out, toDTO(&users[i]))
	}
	return out, nil
}

// DeleteUser removes a non-admin account. Its recipes go with it through
// the foreign key cascade.
func (s *UserAdminService) DeleteUser(id int) error {
	var u model.User
	err := s.DB.First(&u, id).Error
	if database.IsNotFound(err) {
		return ErrUserNotFound
	} else if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if u.IsAdmin {
		return ErrCannotDeleteAdmin
	}
	if err := s.DB.Delete(&u).Error; err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
