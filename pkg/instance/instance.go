package instance

import "os"

const fallbackID = "turfpay-0"

// GetID identifies this process in logs and lock ownership. TURFPAY_INSTANCE_ID
// wins, then the platform dyno name, then the hostname.
func GetID() string {
	if id := os.Getenv("TURFPAY_INSTANCE_ID"); id != "" {
		return id
	}
	if dyno := os.Getenv("DYNO"); dyno != "" {
		return dyno
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
