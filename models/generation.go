package models

import "time"

// Generation kinds recorded in the ledger.
const (
	GenerationKindPrompt = "prompt"
	GenerationKindImage  = "image"
)

// Generation is one AI generation recorded in the ledger. The ledger is the
// durable record behind the per-device daily limit; the fast-path counter
// lives in Redis.
type Generation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DeviceID   string    `gorm:"size:64;index:idx_generations_device_day" json:"deviceId"`
	Kind       string    `gorm:"size:16;not null" json:"kind"`
	PromptHash string    `gorm:"size:64" json:"promptHash"`
	CreatedAt  time.Time `gorm:"index:idx_generations_device_day" json:"createdAt"`
}
