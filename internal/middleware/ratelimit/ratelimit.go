package rateLimit

import (
	"net/http"
	"time"

	httprate "github.com/go-chi/httprate"
)

// Verify is sized against brute force of the code space: 10 guesses per
// 10 minutes per IP makes a 6-digit code practically unguessable within
// its one-hour lifetime.
func Verify() func(http.Handler) http.Handler {
	return limitByIP(10, 10*time.Minute)
}

func Download() func(http.Handler) http.Handler {
	return limitByIP(30, 10*time.Minute)
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.LimitByIP(limit, window)
}
