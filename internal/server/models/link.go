// Package models defines server-side data models persisted in the database.
package models

import "time"

// Link associates one game-account tag with one messaging-platform account id.
// Tag is always stored in canonical form ('#' + uppercase symbols).
type Link struct {
	Tag       string    `json:"playerTag"`
	DiscordID int64     `json:"discordId"`
	CreatedAt time.Time `json:"-"`
}
