package main

import (
	"database/sql"
	"net/http"
	"strings"
)

// loadUserProfile reads one full directory record.
func loadUserProfile(db *sql.DB, userID int) (*UserProfile, error) {
	var u UserProfile
	var skills, lookingFor, seekingSkills []byte
	err := db.QueryRow(`
		SELECT id, email, name, bio, role, skills, looking_for, seeking_skills, location, profile_completed
		FROM users
		WHERE id = $1
	`, userID).Scan(&u.ID, &u.Email, &u.Name, &u.Bio, &u.Role,
		&skills, &lookingFor, &seekingSkills, &u.Location, &u.ProfileCompleted)
	if err == sql.ErrNoRows {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Skills = unmarshalStrings(skills)
	u.LookingFor = unmarshalStrings(lookingFor)
	u.SeekingSkills = unmarshalStrings(seekingSkills)
	return &u, nil
}

func userExists(db *sql.DB, userID int) (bool, error) {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

// GET /me
func meHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(int)
		u, err := loadUserProfile(db, userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	})
}

// PUT /me/profile
// Replaces the editable profile fields. Setting profileCompleted to true
// is what makes the user visible to candidate searches.
func meProfileHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut && r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}

		type ProfileRequest struct {
			Name             string   `json:"name" validate:"required,max=100"`
			Bio              string   `json:"bio" validate:"max=500"`
			Role             string   `json:"role" validate:"required"`
			Skills           []string `json:"skills" validate:"max=20,dive,min=1,max=50"`
			LookingFor       []string `json:"lookingFor" validate:"max=20,dive,min=1,max=50"`
			SeekingSkills    []string `json:"seekingSkills" validate:"max=20,dive,min=1,max=50"`
			Location         string   `json:"location" validate:"max=100"`
			ProfileCompleted bool     `json:"profileCompleted"`
		}

		var req ProfileRequest
		if err := decodeBody(r, &req); err != nil {
			writeDomainError(w, err)
			return
		}
		if !isValidRole(req.Role) {
			writeDomainError(w, validationError("unknown_role"))
			return
		}
		for _, role := range req.LookingFor {
			if !isValidRole(role) {
				writeDomainError(w, validationError("unknown_role"))
				return
			}
		}

		userID := r.Context().Value(userIDKey).(int)
		_, err := db.Exec(`
			UPDATE users
			SET name = $2, bio = $3, role = $4, skills = $5, looking_for = $6,
			    seeking_skills = $7, location = $8, profile_completed = $9
			WHERE id = $1
		`, userID, strings.TrimSpace(req.Name), req.Bio, req.Role,
			marshalStrings(req.Skills), marshalStrings(req.LookingFor),
			marshalStrings(req.SeekingSkills), strings.TrimSpace(req.Location),
			req.ProfileCompleted)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		u, err := loadUserProfile(db, userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	})
}
