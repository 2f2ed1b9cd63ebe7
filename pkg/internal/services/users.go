package services

import (
	"errors"
	"math/rand/v2"

	"github.com/pollcast/pollcast/pkg/internal/models"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// NewAccount registers a user. An empty username gets a generated one, the
// same way anonymous visitors are handled on the web client.
func (s *UserService) NewAccount(username string) (models.User, error) {
	if len(username) == 0 {
		username = randomUsername()
	}

	user := models.User{Username: username}
	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return user, ErrUsernameTaken
		}
		return user, err
	}

	return user, nil
}

func (s *UserService) GetAccountWithID(id uint) (models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	return user, nil
}

const usernameCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomUsername() string {
	runes := make([]byte, 6)
	for idx := range runes {
		runes[idx] = usernameCharset[rand.IntN(len(usernameCharset))]
	}
	return "user_" + string(runes)
}
