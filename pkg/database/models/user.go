package models

import (
	"github.com/google/uuid"
	"github.com/tauraamui/xerror"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	registerForAutomigration(&User{})
}

type User struct {
	gorm.Model
	UUID         string `gorm:"uniqueIndex"`
	Name         string `gorm:"uniqueIndex"`
	AuthHash     string
	SessionToken string
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.UUID = uuid.NewString()
	h, err := enc(u.AuthHash)
	if err != nil {
		return err
	}
	u.AuthHash = h
	return nil
}

func (u *User) ComparePassword(password string) error {
	return cmp(u.AuthHash, password)
}

func enc(p string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	if err != nil {
		return "", xerror.Errorf("unable to generate hash and salt from password: %w", err)
	}

	return string(h), nil
}

func cmp(h, p string) error {
	hb, pb := []byte(h), []byte(p)
	err := bcrypt.CompareHashAndPassword(hb, pb)
	if err != nil {
		return xerror.Errorf("incorrect password: %w", err)
	}

	return nil
}
