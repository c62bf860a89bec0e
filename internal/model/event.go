package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType = string

const (
	EventJoin        EventType = "JOIN"
	EventLeave       EventType = "LEAVE"
	EventRoomFull    EventType = "ROOM_FULL"
	EventGameStarted EventType = "GAME_STARTED"
	EventGameClosed  EventType = "GAME_CLOSED"
	EventRoomDeleted EventType = "ROOM_DELETED"
)

// RoomEvent is published after an occupancy or lifecycle change has been committed.
// Version is the room version written by that commit, so consumers can order
// events of one room even when they arrive out of order.
type RoomEvent struct {
	Type             EventType  `json:"type"`
	RoomID           uuid.UUID  `json:"room_id"`
	UserID           uuid.UUID  `json:"user_id"`
	Nickname         string     `json:"nickname,omitempty"`
	CurrentOccupancy int        `json:"current_occupancy"`
	MaxOccupancy     int        `json:"max_occupancy"`
	Status           RoomStatus `json:"status"`
	Version          int64      `json:"version"`
	Message          string     `json:"message"`
	Timestamp        time.Time  `json:"timestamp"`
}

func JoinEvent(room Room, user User) RoomEvent {
	return newRoomEvent(EventJoin, room, user, fmt.Sprintf("%s joined", user.Nickname))
}

func LeaveEvent(room Room, user User) RoomEvent {
	return newRoomEvent(EventLeave, room, user, fmt.Sprintf("%s left", user.Nickname))
}

func RoomFullEvent(room Room) RoomEvent {
	return newRoomEvent(EventRoomFull, room, User{}, "room is full, the game can start")
}

func GameStartedEvent(room Room) RoomEvent {
	return newRoomEvent(EventGameStarted, room, User{}, "game started")
}

func GameClosedEvent(room Room) RoomEvent {
	return newRoomEvent(EventGameClosed, room, User{}, "game finished, attendance recorded")
}

func RoomDeletedEvent(room Room) RoomEvent {
	return newRoomEvent(EventRoomDeleted, room, User{}, "room was deleted by the host")
}

func newRoomEvent(t EventType, room Room, user User, msg string) RoomEvent {
	return RoomEvent{
		Type:             t,
		RoomID:           room.ID,
		UserID:           user.ID,
		Nickname:         user.Nickname,
		CurrentOccupancy: room.CurrentOccupancy,
		MaxOccupancy:     room.MaxOccupancy,
		Status:           room.Status,
		Version:          room.Version,
		Message:          msg,
		Timestamp:        time.Now().UTC(),
	}
}
