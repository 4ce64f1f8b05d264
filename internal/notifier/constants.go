package notifier

// Discord formatting constants
const (
	DiscordUsername   = "DataSpy"
	DefaultEmbedColor = 0x2B2D31
	ChangeEmbedColor  = 0x5BC0DE
	PriceDropColor    = 0x5CB85C
	PriceRiseColor    = 0xD9534F
	AvailableColor    = 0x5CB85C
	UnavailableColor  = 0xF0AD4E
	NewElementColor   = 0x6F42C1
)

// MaxSummaryLength caps the diff summary carried in a notification.
const MaxSummaryLength = 1500
