package notification

import "zetta/internal/domain/interest"

// FeedResponse is what the bell widget needs.
type FeedResponse struct {
	UnreadCount  int               `json:"unread_count"`
	Badge        string            `json:"badge"`
	Recent       []interest.Record `json:"recent"`
	SoundEnabled bool              `json:"sound_enabled"`
}

func FeedResponseFrom(f Feed) FeedResponse {
	recent := f.Recent
	if recent == nil {
		recent = []interest.Record{}
	}
	return FeedResponse{
		UnreadCount:  f.Unread,
		Badge:        BadgeLabel(f.Unread),
		Recent:       recent,
		SoundEnabled: f.SoundEnabled,
	}
}

type SearchQuery struct {
	Q   string `form:"q"`
	Tab string `form:"tab" validate:"omitempty,oneof=all pending accepted rejected"`
}

type SelectRequest struct {
	ID string `json:"id" validate:"required"`
}

type SoundResponse struct {
	SoundEnabled bool `json:"sound_enabled"`
}

type ApproveResponse struct {
	Message string `json:"message"`
}

type InterestListResponse struct {
	Interests []SearchResult `json:"interests"`
	Total     int            `json:"total"`
}
