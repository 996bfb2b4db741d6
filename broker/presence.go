package broker

import (
	"sort"

	"chat-relay-server/domain"
)

// Presence broadcasts are full-state snapshots, not deltas: connection
// counts are small, so resending the whole list after every membership or
// identity change keeps clients trivially consistent.

func (b *Broker) broadcastUsersLocked() {
	b.broadcastAllLocked(frame(domain.KindUserList, b.userListLocked()))
}

func (b *Broker) broadcastRoomsLocked() {
	b.broadcastAllLocked(frame(domain.KindRoomList, b.roomListLocked()))
}

func (b *Broker) userListLocked() []domain.User {
	users := make([]domain.User, 0, len(b.users))
	for id, u := range b.users {
		users = append(users, domain.User{ID: id, Username: u.name})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (b *Broker) roomListLocked() []domain.RoomSummary {
	rooms := make([]domain.RoomSummary, 0, len(b.rooms))
	for id, r := range b.rooms {
		rooms = append(rooms, domain.RoomSummary{ID: id, Name: r.name, Users: len(r.members)})
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}
