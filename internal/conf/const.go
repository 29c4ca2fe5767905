package conf

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TGDRIVE_"

	// BypassPrefix marks bot messages the chat layer must not treat as commands.
	BypassPrefix = "[bypass] "
)
