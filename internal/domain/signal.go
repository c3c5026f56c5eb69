package domain

import "encoding/json"

type SignalType string

const (
	SignalOffer        SignalType = "offer"
	SignalAnswer       SignalType = "answer"
	SignalICECandidate SignalType = "ice-candidate"
)

func (t SignalType) Valid() bool {
	switch t {
	case SignalOffer, SignalAnswer, SignalICECandidate:
		return true
	}
	return false
}

type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
	MediaBoth  MediaType = "both"
)

func (t MediaType) Valid() bool {
	switch t {
	case MediaAudio, MediaVideo, MediaBoth:
		return true
	}
	return false
}

// Signal is relayed between two peers and never persisted. Payload is
// opaque; only From, To and Type are routing fields.
type Signal struct {
	Type      SignalType      `json:"type"`
	From      UserID          `json:"from"`
	To        UserID          `json:"to"`
	MeetingID MeetingID       `json:"meetingId,omitempty"`
	Payload   json.RawMessage `json:"signal"`
	MediaType MediaType       `json:"mediaType"`
}

func (s Signal) Validate() error {
	if s.To == "" {
		return Errorf(KindInvalidArgument, "signal recipient is required")
	}
	if !s.Type.Valid() {
		return Errorf(KindInvalidArgument, "unknown signal type %q", s.Type)
	}
	if s.MediaType != "" && !s.MediaType.Valid() {
		return Errorf(KindInvalidArgument, "unknown media type %q", s.MediaType)
	}
	return nil
}
