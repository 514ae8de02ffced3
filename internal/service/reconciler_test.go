package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JoaoMaganin/syncflow/internal/domain"
	"github.com/JoaoMaganin/syncflow/internal/service"
)

func user(id, username string) domain.User {
	return domain.User{ID: id, Username: username}
}

func TestSplitDelta(t *testing.T) {
	alice := user("u1", "alice")
	bob := user("u2", "bob")
	carol := user("u3", "carol")

	tests := []struct {
		name        string
		current     []domain.User
		target      []domain.User
		wantAdded   []domain.User
		wantRemoved []domain.User
	}{
		{
			name:        "disjoint sets",
			current:     []domain.User{alice},
			target:      []domain.User{bob},
			wantAdded:   []domain.User{bob},
			wantRemoved: []domain.User{alice},
		},
		{
			name:        "overlap keeps shared member untouched",
			current:     []domain.User{alice, bob},
			target:      []domain.User{bob, carol},
			wantAdded:   []domain.User{carol},
			wantRemoved: []domain.User{alice},
		},
		{
			name:        "identical sets produce no delta",
			current:     []domain.User{alice, bob},
			target:      []domain.User{alice, bob},
			wantAdded:   nil,
			wantRemoved: nil,
		},
		{
			name:        "empty target clears everything",
			current:     []domain.User{alice, bob},
			target:      nil,
			wantAdded:   nil,
			wantRemoved: []domain.User{alice, bob},
		},
		{
			name:        "empty current adds everything",
			current:     nil,
			target:      []domain.User{alice},
			wantAdded:   []domain.User{alice},
			wantRemoved: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, removed := service.SplitDelta(tt.current, tt.target)
			assert.Equal(t, tt.wantAdded, added)
			assert.Equal(t, tt.wantRemoved, removed)
		})
	}
}

func TestSplitDelta_Idempotent(t *testing.T) {
	// Applying the delta yields the target; reconciling again with the
	// same target must be a no-op.
	current := []domain.User{user("u1", "alice"), user("u2", "bob")}
	target := []domain.User{user("u2", "bob"), user("u3", "carol")}

	added, removed := service.SplitDelta(current, target)
	assert.Len(t, added, 1)
	assert.Len(t, removed, 1)

	addedAgain, removedAgain := service.SplitDelta(target, target)
	assert.Empty(t, addedAgain)
	assert.Empty(t, removedAgain)
}

func TestAssigneeValue(t *testing.T) {
	assert.Equal(t, "Ninguém", service.AssigneeValue(nil))
	assert.Equal(t, "Ninguém", service.AssigneeValue([]domain.User{}))
	assert.Equal(t, "bob", service.AssigneeValue([]domain.User{user("u2", "bob")}))

	// Usernames are sorted so the rendered value is order-independent.
	got := service.AssigneeValue([]domain.User{user("u3", "carol"), user("u1", "alice")})
	assert.Equal(t, "alice, carol", got)
}
