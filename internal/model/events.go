package model

// Realtime event names, shared by the websocket hub and the mutation
// pipeline that broadcasts through it.
const (
	// Inbound, from clients. All three require an authorized connection.
	EventItemAdd    = "item-add"
	EventItemDel    = "item-del"
	EventItemUpdate = "item-update"

	// Outbound, broadcast to every connection.
	EventNewItem    = "new-item"
	EventRemoveItem = "remove-item"
	EventUpdateItem = "update-item"

	// Outbound, to a single connection.
	EventAuthorized = "authorized"
	EventError      = "error"
)
