package domain

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type UserStatus string

const (
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusDeleted UserStatus = "DELETED"
)

const (
	// MaxNicknameLength is the nickname column limit, counted in runes.
	MaxNicknameLength = 12
	FriendCodeLength  = 8
)

var validate = validator.New()

type User struct {
	ID              uint64     `json:"userId" gorm:"column:user_id;primaryKey;autoIncrement"`
	KakaoID         *int64     `json:"-" gorm:"column:kakao_id;uniqueIndex"`
	Email           string     `json:"email" gorm:"size:255;not null" validate:"required,email,max=255"`
	Nickname        string     `json:"nickname" gorm:"size:50;not null" validate:"required,max=12"`
	FriendCode      string     `json:"friendCode" gorm:"size:16;uniqueIndex;not null" validate:"required,len=8,alphanum"`
	Status          UserStatus `json:"status" gorm:"type:varchar(16);not null;default:'ACTIVE'" validate:"required,oneof=ACTIVE DELETED"`
	ProfileImageURL *string    `json:"profileImageUrl" gorm:"column:profile_image_url;size:512" validate:"omitempty,max=512"`
	CreatedAt       time.Time  `json:"createdAt"`
	LastLoginAt     *time.Time `json:"lastLoginAt"`
	DeletedAt       *time.Time `json:"deletedAt"`
}

func (User) TableName() string {
	return "user"
}

func (u *User) Validate() error {
	return validate.Struct(u)
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Reactivate marks the account active again and records a login at now.
// A DELETED account becomes ACTIVE through this path.
func (u *User) Reactivate(now time.Time) {
	u.Status = UserStatusActive
	u.DeletedAt = nil
	u.LastLoginAt = &now
}

// ProviderProfile is the identity provider's view of a user, fetched per login.
type ProviderProfile struct {
	ProviderID      int64
	Email           string
	Nickname        string
	ProfileImageURL string
}
