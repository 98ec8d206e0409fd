package notify

import (
	"log/slog"

	pubnub "github.com/pubnub/go"
)

// PubNubPublisher pushes user notifications over PubNub channels. Publish is
// fire-and-forget; delivery failures are logged, never surfaced to the
// operation that triggered them.
type PubNubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNubPublisher(pn *pubnub.PubNub) *PubNubPublisher {
	return &PubNubPublisher{pn: pn}
}

func (p *PubNubPublisher) Publish(channel string, message map[string]any) {
	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		slog.Error("pubnub publish", "channel", channel, "error", err)
	}
}
