package models

import "strings"

// RoomTypeAny marks a subject that can be taught in any room.
const RoomTypeAny = "any"

// Subject represents a taught discipline.
type Subject struct {
	ID               string   `db:"id" json:"id"`
	HalfYear         HalfYear `db:"half_year" json:"half_year"`
	Name             string   `db:"name" json:"name"`
	Difficulty       int      `db:"difficulty" json:"difficulty"`
	RequiredRoomType string   `db:"required_room_type" json:"required_room_type"`
}

// AcceptsRoom reports whether a room of roomType satisfies the subject.
func (s Subject) AcceptsRoom(roomType string) bool {
	req := strings.TrimSpace(s.RequiredRoomType)
	if req == "" || strings.EqualFold(req, RoomTypeAny) {
		return true
	}
	return strings.EqualFold(req, strings.TrimSpace(roomType))
}
