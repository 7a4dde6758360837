package enums

type NotificationKind string

const (
	NotificationKindMatch     NotificationKind = "match"
	NotificationKindSuperLike NotificationKind = "superLike"
	NotificationKindMessage   NotificationKind = "message"
)
