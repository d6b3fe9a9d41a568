package transfer

import "github.com/golang-jwt/jwt/v5"

type PostCreation struct {
	Title         string   `json:"title" form:"title"`
	Content       string   `json:"content" form:"content"`
	Platforms     []string `json:"platforms" form:"platforms"`
	ScheduledTime string   `json:"scheduled_time" form:"scheduled_time"` // local wall clock, e.g. 2024-03-15T09:30
	TimeZone      string   `json:"time_zone" form:"time_zone"`
	Repeat        string   `json:"repeat" form:"repeat"`
	Draft         bool     `json:"draft" form:"draft"`
}

type PostReschedule struct {
	ScheduledTime string `json:"scheduled_time"`
	TimeZone      string `json:"time_zone"`
}

type SchedulerStatus struct {
	IsRunning   bool    `json:"is_running"`
	Checking    bool    `json:"checking"`
	NextCheckAt *string `json:"next_check_at"`
}

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
