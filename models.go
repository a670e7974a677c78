package main

import "time"

// Roles a user can take on a project team. The legacy spellings are kept
// for accounts created before the list was shortened.
var validRoles = []string{
	"Frontend Dev",
	"Backend Dev",
	"Full Stack",
	"ML Engineer",
	"DevOps",
	"Mobile Dev",
	"Blockchain Dev",
	"UI/UX Designer",
	"Frontend Developer",
	"Backend Developer",
	"Full Stack Developer",
	"Data Scientist",
	"DevOps Engineer",
	"Mobile Developer",
	"Other",
}

func isValidRole(role string) bool {
	for _, r := range validRoles {
		if r == role {
			return true
		}
	}
	return false
}

// UserProfile is the full directory record for one user, as read by the
// matching core. Mutated only through the profile endpoints.
type UserProfile struct {
	ID               int      `json:"id"`
	Email            string   `json:"email,omitempty"`
	Name             string   `json:"name"`
	Bio              string   `json:"bio"`
	Role             string   `json:"role"`
	Skills           []string `json:"skills"`
	LookingFor       []string `json:"lookingFor"`
	SeekingSkills    []string `json:"seekingSkills"`
	Location         string   `json:"location"`
	ProfileCompleted bool     `json:"profileCompleted"`
}

// PublicUser is the view of a user that other users are allowed to see.
// Never carries email or credentials.
type PublicUser struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Bio      string   `json:"bio"`
	Skills   []string `json:"skills"`
	Location string   `json:"location"`
}

func (u *UserProfile) public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Name:     u.Name,
		Role:     u.Role,
		Bio:      u.Bio,
		Skills:   u.Skills,
		Location: u.Location,
	}
}

// Match is a confirmed mutual interest between two users. UserA < UserB
// (canonical pair order); ChatID is fixed at creation.
type Match struct {
	ID        int       `json:"matchId"`
	ChatID    string    `json:"chatChannelId"`
	UserA     int       `json:"-"`
	UserB     int       `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// other returns the member of the match that is not userID.
func (m *Match) other(userID int) int {
	if m.UserA == userID {
		return m.UserB
	}
	return m.UserA
}

func (m *Match) hasMember(userID int) bool {
	return m.UserA == userID || m.UserB == userID
}

// ChatMessage is one persisted message in a chat channel.
type ChatMessage struct {
	ID         int64     `json:"id"`
	ChatID     string    `json:"chatChannelId"`
	SenderID   int       `json:"senderId"`
	SenderName string    `json:"senderName"`
	Body       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Candidate is one scored entry in a /match/find result.
type Candidate struct {
	User         PublicUser `json:"user"`
	Score        int        `json:"score"`
	CommonSkills []string   `json:"commonSkills"`
}
