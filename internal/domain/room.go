package domain

type (
	// ChannelID identifies a persisted conversation channel. Channel and
	// group records live in the directory, not here.
	ChannelID string
	GroupID   string

	// RoomID identifies an ad hoc video room. Rooms exist only while
	// occupied.
	RoomID string
	// PeerID is a media-transport identifier. One user may hold several
	// peers, so it is distinct from UserID.
	PeerID string
)

// RoomPeer is one occupant of a video room.
type RoomPeer struct {
	PeerID      PeerID `json:"peer_id"`
	UserID      UserID `json:"user_id"`
	DisplayName string `json:"display_name"`
}
