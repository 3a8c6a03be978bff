package domain

import "time"

// AudioQuality is the informational quality tier a broadcaster advertises.
type AudioQuality string

const (
	AudioQualityHigh   AudioQuality = "high"
	AudioQualityMedium AudioQuality = "medium"
	AudioQualityLow    AudioQuality = "low"
)

// Valid reports whether q is one of the known tiers.
func (q AudioQuality) Valid() bool {
	switch q {
	case AudioQualityHigh, AudioQualityMedium, AudioQualityLow:
		return true
	}
	return false
}

// Broadcast is one live or historical broadcast session.
type Broadcast struct {
	ID            string       `json:"id"`
	RoomID        string       `json:"roomId"`
	Title         string       `json:"title"`
	IsActive      bool         `json:"isActive"`
	ListenerCount int          `json:"listenerCount"`
	AudioQuality  AudioQuality `json:"audioQuality"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// BroadcastPatch is a shallow partial update; nil fields are left untouched.
type BroadcastPatch struct {
	Title         *string       `json:"title"`
	IsActive      *bool         `json:"isActive"`
	ListenerCount *int          `json:"listenerCount"`
	AudioQuality  *AudioQuality `json:"audioQuality"`
}

// Empty reports whether the patch changes nothing.
func (p BroadcastPatch) Empty() bool {
	return p.Title == nil && p.IsActive == nil && p.ListenerCount == nil && p.AudioQuality == nil
}

// Apply merges the patch into b.
func (p BroadcastPatch) Apply(b *Broadcast) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.IsActive != nil {
		b.IsActive = *p.IsActive
	}
	if p.ListenerCount != nil {
		b.ListenerCount = *p.ListenerCount
	}
	if p.AudioQuality != nil {
		b.AudioQuality = *p.AudioQuality
	}
}

// CreateBroadcastRequest is the body of POST /api/v1/broadcasts.
// RoomID may be omitted, in which case a shareable one is generated.
type CreateBroadcastRequest struct {
	RoomID       string       `json:"roomId" binding:"omitempty,max=64"`
	Title        string       `json:"title" binding:"required,min=1,max=200"`
	AudioQuality AudioQuality `json:"audioQuality" binding:"omitempty,oneof=high medium low"`
}

// UpdateBroadcastRequest is the body of PATCH /api/v1/broadcasts/:id.
type UpdateBroadcastRequest struct {
	Title         *string       `json:"title" binding:"omitempty,min=1,max=200"`
	IsActive      *bool         `json:"isActive"`
	ListenerCount *int          `json:"listenerCount" binding:"omitempty,min=0"`
	AudioQuality  *AudioQuality `json:"audioQuality" binding:"omitempty,oneof=high medium low"`
}

// Patch converts the request into a registry patch.
func (r *UpdateBroadcastRequest) Patch() BroadcastPatch {
	return BroadcastPatch{
		Title:         r.Title,
		IsActive:      r.IsActive,
		ListenerCount: r.ListenerCount,
		AudioQuality:  r.AudioQuality,
	}
}

// Stats is the aggregate view served by GET /api/v1/stats.
type Stats struct {
	ActiveStreams     int    `json:"activeStreams"`
	TotalListeners    int    `json:"totalListeners"`
	ConnectionQuality string `json:"connectionQuality"`
}
