package services

// Actor is the caller identity resolved by the session layer. A nil WaiterID is
// the top-level admin (or the allocator acting on the admin's behalf).
type Actor struct {
	WaiterID *uint
	Name     string
}

// SystemActor attributes automatic allocator seatings.
var SystemActor = Actor{Name: "auto-allocator"}

func AdminActor(name string) Actor {
	return Actor{Name: name}
}

func WaiterActor(id uint, username string) Actor {
	return Actor{WaiterID: &id, Name: username}
}

func (a Actor) IsAdmin() bool {
	return a.WaiterID == nil
}
