package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMeResponse(t *testing.T) {
	now := time.Now()
	user := &models.User{ID: "u1", Email: "me@example.com", Username: "me", EmailConfirmedAt: &now}

	me := ToMeResponse(user, nil)
	assert.Equal(t, "me", me.Username)
	assert.Equal(t, "me@example.com", me.Email)
	assert.True(t, me.EmailConfirmed)

	followers := int64(3)
	profile := user.ToProfile()
	profile.FollowerCount = &followers
	me = ToMeResponse(user, &profile)

	data, err := json.Marshal(me)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "me@example.com", decoded["email"])
	assert.Equal(t, float64(3), decoded["follower_count"])
	assert.Equal(t, "u1", decoded["id"], "profile fields are flattened")
}
