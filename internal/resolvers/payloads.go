package resolvers

import (
	"time"

	"github.com/isdelr/hackernews-be/internal/models"
)

// LinkPayload is the public shape of a Link.
type LinkPayload struct {
	ID          int64        `json:"id"`
	URL         string       `json:"url"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"createdAt"`
	PostedBy    *UserPayload `json:"postedBy"`
	Votes       int          `json:"votes"`
}

// UserPayload is the public shape of a User. The credential hash never leaves the store.
type UserPayload struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// VotePayload is the public shape of a Vote.
type VotePayload struct {
	ID   int64       `json:"id"`
	Link LinkPayload `json:"link"`
	User UserPayload `json:"user"`
}

// AuthPayload is returned by signup and login.
type AuthPayload struct {
	Token string      `json:"token"`
	User  UserPayload `json:"user"`
}

// ProjectLink maps a stored link to its public shape.
func ProjectLink(link models.Link) LinkPayload {
	p := LinkPayload{
		ID:          link.ID,
		URL:         link.URL,
		Description: link.Description,
		CreatedAt:   link.CreatedAt,
		Votes:       link.VoteCount,
	}
	if link.PostedByID != nil {
		p.PostedBy = &UserPayload{ID: *link.PostedByID, Login: link.PostedByLogin}
	}
	return p
}

// ProjectLinks maps a slice of stored links, keeping order.
func ProjectLinks(links []models.Link) []LinkPayload {
	out := make([]LinkPayload, 0, len(links))
	for _, link := range links {
		out = append(out, ProjectLink(link))
	}
	return out
}

// ProjectUser maps a stored user to its public shape.
func ProjectUser(user models.User) UserPayload {
	return UserPayload{ID: user.ID, Login: user.Login}
}

// ProjectVote maps a vote together with its link and voter.
func ProjectVote(vote models.Vote, link models.Link, user models.User) VotePayload {
	return VotePayload{ID: vote.ID, Link: ProjectLink(link), User: ProjectUser(user)}
}
