package repos

import (
	"github.com/tauraamui/idlesqueeze/pkg/database/dbconn"
	"github.com/tauraamui/idlesqueeze/pkg/database/models"
	"github.com/tauraamui/xerror"
)

var ErrUserNotFound = xerror.New("user not found")

type UserRepository struct {
	DB dbconn.GormWrapper
}

func (r *UserRepository) Create(user *models.User) error {
	return r.DB.Create(user).Error()
}

func (r *UserRepository) FindByUUID(uuid string) (models.User, error) {
	user := models.User{}
	if err := r.DB.Where("uuid = ?", uuid).First(&user).Error(); err != nil {
		return user, xerror.Errorf("%w: uuid %s", ErrUserNotFound, uuid)
	}

	return user, nil
}

func (r *UserRepository) FindByName(username string) (models.User, error) {
	user := models.User{}
	if err := r.DB.Where("name = ?", username).First(&user).Error(); err != nil {
		return user, xerror.Errorf("%w: name %s", ErrUserNotFound, username)
	}

	return user, nil
}
