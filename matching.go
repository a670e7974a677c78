package main

import (
	"database/sql"
	"net/http"
	"sort"
	"strings"

	"github.com/lib/pq"
)

// Candidate scoring weights. Shared skills dominate, a reciprocal role
// interest is worth a bit more than one skill, same city is a nudge.
const (
	skillWeight      = 3
	reciprocalWeight = 5
	locationWeight   = 1

	maxCandidates = 10
)

// commonSkills returns the requester's skills that the candidate also has,
// in the requester's order. Comparison is exact.
func commonSkills(requester, candidate []string) []string {
	candidateSet := make(map[string]bool, len(candidate))
	for _, s := range candidate {
		candidateSet[s] = true
	}
	common := []string{}
	for _, s := range requester {
		if candidateSet[s] {
			common = append(common, s)
		}
	}
	return common
}

// scoreCandidate computes the compatibility score between a requester and
// one already hard-filtered candidate.
func scoreCandidate(requester, candidate *UserProfile) (int, []string) {
	common := commonSkills(requester.Skills, candidate.Skills)
	score := skillWeight * len(common)

	for _, role := range candidate.LookingFor {
		if role == requester.Role {
			score += reciprocalWeight
			break
		}
	}

	if requester.Location != "" && candidate.Location != "" &&
		strings.EqualFold(requester.Location, candidate.Location) {
		score += locationWeight
	}

	return score, common
}

// rankCandidates scores every candidate, sorts by score descending and
// truncates to the top 10. The sort is stable: ties keep the directory's
// own order (ascending user id, the order candidates arrive in), since
// no secondary key is defined for equal scores.
func rankCandidates(requester *UserProfile, candidates []*UserProfile) []Candidate {
	ranked := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		score, common := scoreCandidate(requester, c)
		ranked = append(ranked, Candidate{
			User:         c.public(),
			Score:        score,
			CommonSkills: common,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > maxCandidates {
		ranked = ranked[:maxCandidates]
	}
	return ranked
}

// loadCandidates applies the hard filter in SQL: not the requester,
// profile completed, and the candidate's role is one the requester is
// looking for. Ordered by id so ranking ties are deterministic.
func loadCandidates(db *sql.DB, requester *UserProfile) ([]*UserProfile, error) {
	if len(requester.LookingFor) == 0 {
		return nil, nil
	}

	rows, err := db.Query(`
		SELECT id, name, bio, role, skills, looking_for, seeking_skills, location
		FROM users
		WHERE id <> $1
		  AND profile_completed = TRUE
		  AND role = ANY($2)
		ORDER BY id ASC
	`, requester.ID, pq.Array(requester.LookingFor))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []*UserProfile
	for rows.Next() {
		var u UserProfile
		var skills, lookingFor, seekingSkills []byte
		if err := rows.Scan(&u.ID, &u.Name, &u.Bio, &u.Role,
			&skills, &lookingFor, &seekingSkills, &u.Location); err != nil {
			return nil, err
		}
		u.Skills = unmarshalStrings(skills)
		u.LookingFor = unmarshalStrings(lookingFor)
		u.SeekingSkills = unmarshalStrings(seekingSkills)
		u.ProfileCompleted = true
		candidates = append(candidates, &u)
	}
	return candidates, rows.Err()
}

// POST /match/find
// Returns the ranked candidate list for the authenticated user. Pure read:
// calling it twice against unchanged data gives the same answer.
func findCandidatesHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}

		userID := r.Context().Value(userIDKey).(int)
		requester, err := loadUserProfile(db, userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		candidates, err := loadCandidates(db, requester)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		ranked := rankCandidates(requester, candidates)
		writeJSON(w, http.StatusOK, map[string][]Candidate{"matches": ranked})
	})
}
