package users

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/turfpay-backend/pkg/db/models"
)

// UserDTO is the public profile shape embedded in roster and status views.
type UserDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name  string
	Email string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Name:  c.Name,
		Email: c.Email,
	}
}
