package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_JSONHidesPrivateFields(t *testing.T) {
	u := User{
		ID:        "c0ffee",
		Username:  "jake",
		Email:     "jake@jake.jake",
		Password:  "opaque-hash",
		Bio:       "I work at statefarm",
		Image:     "https://example.com/jake.png",
		CreatedAt: time.Unix(1700000000, 0),
		UpdatedAt: time.Unix(1700000001, 0),
	}

	raw, err := json.Marshal(u)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, map[string]any{
		"username": "jake",
		"email":    "jake@jake.jake",
		"bio":      "I work at statefarm",
		"image":    "https://example.com/jake.png",
	}, got)
}

func TestProfileOf(t *testing.T) {
	u := &User{Username: "jake", Bio: "bio", Image: "img", Email: "jake@jake.jake"}

	assert.Equal(t, Profile{Username: "jake", Bio: "bio", Image: "img", Following: true}, ProfileOf(u, true))
	assert.False(t, ProfileOf(u, false).Following)
}
