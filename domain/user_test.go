package domain

import "testing"

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		in   Identity
		want string
	}{
		{"pseudo wins", Identity{Email: "a@b.com", Pseudo: "Bob"}, "Bob"},
		{"pseudo only", Identity{Pseudo: "Bob"}, "Bob"},
		{"email local part", Identity{Email: "a@b.com"}, "a"},
		{"blank pseudo ignored", Identity{Email: "a@b.com", Pseudo: "  "}, "a"},
		{"no at sign", Identity{Email: "alice"}, "alice"},
		{"leading at sign", Identity{Email: "@b.com"}, "@b.com"},
		{"empty", Identity{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DisplayName(tt.in)
			if got != tt.want {
				t.Fatalf("DisplayName(%+v) = %q, want %q", tt.in, got, tt.want)
			}
			if again := DisplayName(Identity{Email: tt.in.Email, Pseudo: got}); got != "" && again != got {
				t.Fatalf("expected idempotent result, got %q then %q", got, again)
			}
		})
	}
}

func TestUserHelpers(t *testing.T) {
	var nilUser *User
	if nilUser.IsAdmin() || nilUser.DisplayName() != "" || nilUser.Clone() != nil {
		t.Fatal("nil user helpers must be safe")
	}

	u := &User{ID: "u1", Email: "a@b.com", Roles: RolesFor(true), GroupIDs: []string{"g1"}, Pseudo: StringPtr("Bob")}
	clone := u.Clone()
	clone.GroupIDs[0] = "g2"
	*clone.Pseudo = "Alice"
	if u.GroupIDs[0] != "g1" || *u.Pseudo != "Bob" {
		t.Fatal("clone must not alias the original")
	}
	if !u.IsAdmin() || u.DisplayName() != "Bob" {
		t.Fatalf("unexpected helpers on %+v", u)
	}

	member := &GroupMember{Email: "kid@b.com"}
	if member.DisplayName() != "kid" {
		t.Fatalf("unexpected member display name %q", member.DisplayName())
	}
}
