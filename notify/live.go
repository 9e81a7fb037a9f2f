package notify

import (
	"context"

	"github.com/Dosada05/pyramid-ladder/ladder"
	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/realtime"
)

// Broadcaster is satisfied by *realtime.Hub.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

// LiveUpdate is the payload pushed to everyone watching a pyramid.
type LiveUpdate struct {
	Kind        models.NotificationKind `json:"kind"`
	PyramidID   int                     `json:"pyramid_id"`
	MatchID     int                     `json:"match_id,omitempty"`
	Attacker    string                  `json:"attacker,omitempty"`
	Defender    string                  `json:"defender,omitempty"`
	Team        string                  `json:"team,omitempty"`
	Message     string                  `json:"message"`
	CurrentSlot *models.Slot            `json:"current_position,omitempty"`
	NextRowSlot *models.Slot            `json:"next_row_position,omitempty"`
}

// LiveSink pushes events to the pyramid's websocket room.
type LiveSink struct {
	hub Broadcaster
}

func NewLiveSink(hub Broadcaster) *LiveSink {
	return &LiveSink{hub: hub}
}

func (s *LiveSink) Notify(_ context.Context, event Event) error {
	room := realtime.RoomForPyramid(event.PyramidID)
	s.hub.BroadcastToRoom(room, realtime.WebSocketMessage{
		Type:   string(event.Kind),
		RoomID: room,
		Payload: LiveUpdate{
			Kind:        event.Kind,
			PyramidID:   event.PyramidID,
			MatchID:     event.MatchID,
			Attacker:    ladder.TeamName(event.Attacker),
			Defender:    ladder.TeamName(event.Defender),
			Team:        ladder.TeamName(event.Team),
			Message:     Message(event),
			CurrentSlot: event.CurrentPosition,
			NextRowSlot: event.NextRowPosition,
		},
	})
	return nil
}
