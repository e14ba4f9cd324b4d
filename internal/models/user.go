package models

// User represents a Telegram account known to the bot.
//
// Users are created (or refreshed) on first contact and never deleted.
// Re-adding an existing ID overwrites the display attributes.
type User struct {
	// ID is the Telegram-assigned numeric identifier. Stable per account.
	ID int64

	// Username is the public @handle. Optional; Telegram users may not
	// have one.
	Username string

	// FirstName is the display first name.
	FirstName string

	// LastName is the display last name. May be empty.
	LastName string
}
