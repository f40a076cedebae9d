package models

import "time"

// Activity is the kind of mutation recorded in the audit log.
type Activity string

const (
	ActivityAdd    Activity = "ADD"
	ActivityDelete Activity = "DELETE"
)

// AuditEntry is an append-only record of a link mutation.
type AuditEntry struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Activity  Activity  `json:"activity"`
	Tag       string    `json:"playerTag"`
	DiscordID int64     `json:"discordId"`
	CreatedAt time.Time `json:"createdAt"`
}
