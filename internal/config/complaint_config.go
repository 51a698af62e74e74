package config

import "time"

const (
	// Feedback
	MinFeedbackRating = 1
	MaxFeedbackRating = 5

	// Workload
	TrendWindowDays = 7

	// Real-time
	ClientSendBuffer = 256
	WriteWait        = 10 * time.Second
	PongWait         = 60 * time.Second
	PingPeriod       = (PongWait * 9) / 10
	MaxFrameSize     = 8 << 10

	// Rooms
	AdminRoom = "admin_alerts"
)

// TokenTTL is how long issued credentials stay valid.
var TokenTTL = 7 * 24 * time.Hour
