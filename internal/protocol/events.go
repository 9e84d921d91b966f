package protocol

// Client to server channels.
const (
	EventJoinSession     = "join-session"
	EventLeaveSession    = "leave-session"
	EventCursorMove      = "cursor-move"
	EventAssetCreated    = "asset-created"
	EventAssetUpdated    = "asset-updated"
	EventAssetDeleted    = "asset-deleted"
	EventLayersReordered = "layers-reordered"
)

// Server to client channels.
const (
	EventSessionUsersUpdated = "session-users-updated"
	EventUserJoined          = "user-joined"
	EventUserLeft            = "user-left"
	EventCursorMoved         = "cursor-moved"
	EventAssetAdd            = "asset-add"
	EventAssetUpdate         = "asset-update"
	EventAssetRemove         = "asset-remove"
	EventUpdateLayers        = "update-layers"
)

// relayed maps an inbound edit channel to the name it is fanned out under.
var relayed = map[string]string{
	EventAssetCreated:    EventAssetAdd,
	EventAssetUpdated:    EventAssetUpdate,
	EventAssetDeleted:    EventAssetRemove,
	EventLayersReordered: EventUpdateLayers,
}

// RelayedEvent returns the outbound channel for an inbound edit channel.
// ok is false when event is not an edit channel.
func RelayedEvent(event string) (string, bool) {
	out, ok := relayed[event]
	return out, ok
}

// IsEditEvent reports whether event is one of the inbound edit channels.
func IsEditEvent(event string) bool {
	_, ok := relayed[event]
	return ok
}
