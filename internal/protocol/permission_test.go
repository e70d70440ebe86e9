package protocol

import "testing"

func TestAdminImpliesEveryAction(t *testing.T) {
	p := NewPermissions([]string{"*"}, ActionAdmin)
	for _, a := range []Action{ActionRead, ActionWrite, ActionInvoke, ActionAdmin} {
		if !p.Can(a) {
			t.Errorf("admin permissions should allow %v", a)
		}
	}
	if !p.CanAccessRoom("room_anything") {
		t.Error("wildcard pattern should allow any room")
	}
}

func TestCanAccessRoomExactMatch(t *testing.T) {
	p := NewPermissions([]string{"room_1", "room_2"}, ActionRead)
	if !p.CanAccessRoom("room_1") {
		t.Error("expected access to room_1")
	}
	if p.CanAccessRoom("room_3") {
		t.Error("expected no access to room_3")
	}
}

func TestCanIsFalseWithoutGrant(t *testing.T) {
	p := NewPermissions([]string{"*"}, ActionRead)
	if p.Can(ActionWrite) {
		t.Error("expected Write to be denied")
	}
}
