package entity

import "time"

type Session struct {
	Base

	Token     string `gorm:"unique"`
	XUserID   string `gorm:"index"`
	XUsername string
	ExpiresAt time.Time
}
