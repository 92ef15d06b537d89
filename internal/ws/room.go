package ws

// Room is one broadcast group. Rooms are guarded by Hub.mu.
type Room struct {
	clients map[*Conn]struct{} // connections in this room
}

// NewRoom creates an empty room
func NewRoom() *Room { return &Room{clients: map[*Conn]struct{}{}} }

// Join adds a connection to the room
func (r *Room) Join(c *Conn) { r.clients[c] = struct{}{} }

// Leave removes a connection from the room
func (r *Room) Leave(c *Conn) { delete(r.clients, c) }

// Empty reports whether nobody is left
func (r *Room) Empty() bool { return len(r.clients) == 0 }

// Len is the member count
func (r *Room) Len() int { return len(r.clients) }

// collect adds every member to set
func (r *Room) collect(set map[*Conn]struct{}) {
	for c := range r.clients {
		set[c] = struct{}{}
	}
}
