package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileEndpoints(t *testing.T) {
	requireDB(t)

	user := createTestUser(t, "profile_me@example.com", "password")
	defer cleanupTestData(user.Email)

	t.Run("fresh account starts incomplete", func(t *testing.T) {
		w := doJSON(t, meHandler(db), "GET", "/me", user.Token, nil)
		require.Equal(t, 200, w.Code)
		var u UserProfile
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
		assert.False(t, u.ProfileCompleted)
		assert.Empty(t, u.Skills)
	})

	t.Run("update round-trips the editable fields", func(t *testing.T) {
		w := doJSON(t, meProfileHandler(db), "PUT", "/me/profile", user.Token, map[string]interface{}{
			"name":             "Ada",
			"bio":              "Building things",
			"role":             "Backend Dev",
			"skills":           []string{"Go", "SQL"},
			"lookingFor":       []string{"Frontend Dev"},
			"seekingSkills":    []string{"React"},
			"location":         "Berlin",
			"profileCompleted": true,
		})
		require.Equal(t, 200, w.Code, w.Body.String())

		var u UserProfile
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
		assert.Equal(t, "Ada", u.Name)
		assert.Equal(t, []string{"Go", "SQL"}, u.Skills)
		assert.Equal(t, []string{"Frontend Dev"}, u.LookingFor)
		assert.True(t, u.ProfileCompleted)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		w := doJSON(t, meProfileHandler(db), "PUT", "/me/profile", user.Token, map[string]interface{}{
			"name": "Ada",
			"role": "Wizard",
		})
		assert.Equal(t, 400, w.Code)
	})

	t.Run("non-array skills rejected at the boundary", func(t *testing.T) {
		w := doJSON(t, meProfileHandler(db), "PUT", "/me/profile", user.Token, map[string]interface{}{
			"name":   "Ada",
			"role":   "Backend Dev",
			"skills": "Go,SQL",
		})
		assert.Equal(t, 400, w.Code)
	})

	t.Run("unauthenticated request rejected", func(t *testing.T) {
		w := doJSON(t, meHandler(db), "GET", "/me", "", nil)
		assert.Equal(t, 401, w.Code)
	})
}
