package domain

import "time"

// BroadcastModel is the GORM model for the broadcasts table.
type BroadcastModel struct {
	ID            string    `gorm:"type:varchar(36);primaryKey"`
	RoomID        string    `gorm:"type:varchar(64);index;not null"`
	Title         string    `gorm:"type:varchar(200);not null"`
	IsActive      bool      `gorm:"index;not null;default:true"`
	ListenerCount int       `gorm:"not null;default:0"`
	AudioQuality  string    `gorm:"type:varchar(10);not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for BroadcastModel.
func (BroadcastModel) TableName() string {
	return "broadcasts"
}

// ToDomain converts BroadcastModel to domain Broadcast.
func (m *BroadcastModel) ToDomain() *Broadcast {
	return &Broadcast{
		ID:            m.ID,
		RoomID:        m.RoomID,
		Title:         m.Title,
		IsActive:      m.IsActive,
		ListenerCount: m.ListenerCount,
		AudioQuality:  AudioQuality(m.AudioQuality),
		CreatedAt:     m.CreatedAt,
	}
}

// BroadcastToModel converts domain Broadcast to BroadcastModel.
func BroadcastToModel(b *Broadcast) *BroadcastModel {
	return &BroadcastModel{
		ID:            b.ID,
		RoomID:        b.RoomID,
		Title:         b.Title,
		IsActive:      b.IsActive,
		ListenerCount: b.ListenerCount,
		AudioQuality:  string(b.AudioQuality),
		CreatedAt:     b.CreatedAt,
	}
}

// Columns maps the patch to column updates for a GORM Updates call.
func (p BroadcastPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{}, 4)
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.IsActive != nil {
		cols["is_active"] = *p.IsActive
	}
	if p.ListenerCount != nil {
		cols["listener_count"] = *p.ListenerCount
	}
	if p.AudioQuality != nil {
		cols["audio_quality"] = string(*p.AudioQuality)
	}
	return cols
}
