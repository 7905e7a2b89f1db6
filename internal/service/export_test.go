package service

import "time"

func (d *UserDirectory) SetFriendCodeFunc(fn func() (string, error)) {
	d.friendCodeFn = fn
}

func (d *UserDirectory) SetClock(now func() time.Time) {
	d.now = now
}

var GenerateFriendCode = generateFriendCode
