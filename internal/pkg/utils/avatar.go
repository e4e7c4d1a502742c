package utils

import "fmt"

// DiscordAvatarURL builds the CDN URL for a user's Discord avatar.
// Default size is 128px if not specified.
func DiscordAvatarURL(discordID, avatarHash string, size int) string {
	if size <= 0 {
		size = 128
	}
	if avatarHash == "" {
		// Discord's default avatar set cycles on the user ID.
		return "https://cdn.discordapp.com/embed/avatars/0.png"
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png?size=%d", discordID, avatarHash, size)
}
