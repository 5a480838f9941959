package logger

import "time"

// Message is a single entry handed to a Formatter.
type Message struct {
	Timestamp time.Time
	Namespace string
	Level     Level
	Body      string
	Ctx       Ctx
}
