package services

import "fmt"

// Publisher pushes user-facing notifications. The PubNub adapter in
// internal/notify implements it in production; tests use a recording stub.
type Publisher interface {
	Publish(channel string, message map[string]any)
}

func userChannel(ownerID string) string {
	return fmt.Sprintf("user-%s", ownerID)
}
