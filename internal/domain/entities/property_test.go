package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProperty_IsManagedBy(t *testing.T) {
	agent := "agent-1"
	p := &Property{OwnerID: "owner-1", AgentID: &agent}

	assert.True(t, p.IsManagedBy(Actor{UserID: "owner-1", Role: RoleSeller}))
	assert.True(t, p.IsManagedBy(Actor{UserID: "agent-1", Role: RoleAgent}))
	assert.True(t, p.IsManagedBy(Actor{UserID: "ops", Role: RoleAdmin}))
	assert.False(t, p.IsManagedBy(Actor{UserID: "buyer-1", Role: RoleBuyer}))
	assert.False(t, p.IsManagedBy(Actor{}))

	p.AgentID = nil
	assert.False(t, p.IsManagedBy(Actor{UserID: "agent-1", Role: RoleAgent}))
}

func TestProperty_ApplyRating(t *testing.T) {
	p := &Property{}

	p.ApplyRating(1, 3)
	assert.Equal(t, 3.0, p.AverageRating)

	p.ApplyRating(0, 2)
	assert.Equal(t, 1, p.RatingsCount)
	assert.Equal(t, 5.0, p.AverageRating)

	p.ApplyRating(-1, -5)
	assert.Equal(t, 0, p.RatingsCount)
	assert.Equal(t, 0.0, p.AverageRating)
}
