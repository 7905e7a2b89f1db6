package domain_test

import (
	"testing"
	"time"

	"github.com/mealmate/server/internal/domain"
	"github.com/stretchr/testify/assert"
)

func validUser() *domain.User {
	kakaoID := int64(12345)
	return &domain.User{
		KakaoID:    &kakaoID,
		Email:      "kakao_12345@noemail.com",
		Nickname:   "카카오사용자",
		FriendCode: "AB12CD34",
		Status:     domain.UserStatusActive,
	}
}

func TestUser_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(u *domain.User)
		wantErr bool
	}{
		{name: "valid user", mutate: func(u *domain.User) {}},
		{name: "twelve rune korean nickname", mutate: func(u *domain.User) { u.Nickname = "가나다라마바사아자차카타" }},
		{name: "nickname too long", mutate: func(u *domain.User) { u.Nickname = "abcdefghijklm" }, wantErr: true},
		{name: "missing email", mutate: func(u *domain.User) { u.Email = "" }, wantErr: true},
		{name: "malformed email", mutate: func(u *domain.User) { u.Email = "not-an-email" }, wantErr: true},
		{name: "short friend code", mutate: func(u *domain.User) { u.FriendCode = "AB12" }, wantErr: true},
		{name: "unknown status", mutate: func(u *domain.User) { u.Status = "SUSPENDED" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := validUser()
			tt.mutate(u)

			err := u.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestUser_Reactivate(t *testing.T) {
	u := validUser()
	deletedAt := time.Now().Add(-time.Hour)
	u.Status = domain.UserStatusDeleted
	u.DeletedAt = &deletedAt

	now := time.Now()
	u.Reactivate(now)

	assert.True(t, u.IsActive())
	assert.Nil(t, u.DeletedAt)
	if assert.NotNil(t, u.LastLoginAt) {
		assert.Equal(t, now, *u.LastLoginAt)
	}
}
