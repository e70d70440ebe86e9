package protocol

// Action is a capability a member may hold over a room.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionInvoke Action = "invoke"
	ActionAdmin  Action = "admin"
)

// Permissions describes which rooms a member may touch and what it may do
// there. AllowedRooms is an ordered sequence of room-id patterns; the
// pattern "*" matches any room.
type Permissions struct {
	AllowedRooms []string
	Actions      map[Action]struct{}
}

// NewPermissions builds a Permissions value from a room pattern list and a
// slice of actions.
func NewPermissions(allowedRooms []string, actions ...Action) Permissions {
	set := make(map[Action]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return Permissions{AllowedRooms: allowedRooms, Actions: set}
}

// Can reports whether the permission set grants action, directly or via
// Admin (which implies every other action). Total: never panics.
func (p Permissions) Can(action Action) bool {
	if _, ok := p.Actions[ActionAdmin]; ok {
		return true
	}
	_, ok := p.Actions[action]
	return ok
}

// CanAccessRoom reports whether any configured pattern matches room r,
// where "*" matches any room. Total: never panics.
func (p Permissions) CanAccessRoom(r string) bool {
	for _, pattern := range p.AllowedRooms {
		if pattern == "*" || pattern == r {
			return true
		}
	}
	return false
}

// EffectivePermissions returns the set of actions usable in room r: empty
// if the member cannot access the room at all.
func (p Permissions) EffectivePermissions(r string) map[Action]struct{} {
	result := make(map[Action]struct{})
	if !p.CanAccessRoom(r) {
		return result
	}
	for _, a := range []Action{ActionRead, ActionWrite, ActionInvoke, ActionAdmin} {
		if p.Can(a) {
			result[a] = struct{}{}
		}
	}
	return result
}
