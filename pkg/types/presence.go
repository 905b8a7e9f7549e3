package types

type PresenceStatus string

const (
	PRESENCE_ONLINE  PresenceStatus = "online"
	PRESENCE_AWAY    PresenceStatus = "away"
	PRESENCE_BUSY    PresenceStatus = "busy"
	PRESENCE_OFFLINE PresenceStatus = "offline"
)
