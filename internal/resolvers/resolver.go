package resolvers

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/isdelr/hackernews-be/internal/apperr"
	"github.com/isdelr/hackernews-be/internal/models"
	"github.com/isdelr/hackernews-be/internal/services"
	"github.com/rs/zerolog/log"
)

// TopicNewLink is the event channel topic for newly posted links.
const TopicNewLink = "NEW_LINK"

const infoText = "This is the API of a Hackernews Clone"

const maxLoginLength = 64

// bcrypt only accepts passwords up to this many bytes.
const maxPasswordLength = 72

// TokenIssuer issues bearer tokens for a user id.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// PasswordHasher hashes and checks credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
	VerifyDummy(password string)
}

// Resolver implements the query, mutation and subscription operations.
type Resolver struct {
	tokens TokenIssuer
	hasher PasswordHasher
}

// NewResolver creates a Resolver.
func NewResolver(tokens TokenIssuer, hasher PasswordHasher) *Resolver {
	return &Resolver{tokens: tokens, hasher: hasher}
}

// Info returns a static description of the API.
func (r *Resolver) Info(rc *RequestContext) string {
	return infoText
}

// Feed returns every link in store order.
func (r *Resolver) Feed(ctx context.Context, rc *RequestContext) ([]LinkPayload, error) {
	links, err := rc.Data.Links.GetAllLinks(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return ProjectLinks(links), nil
}

// Link returns a single link.
func (r *Resolver) Link(ctx context.Context, rc *RequestContext, id int64) (LinkPayload, error) {
	link, err := rc.Data.Links.GetLinkByID(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return LinkPayload{}, apperr.ErrLinkNotFound
		}
		return LinkPayload{}, unavailable(err)
	}
	return ProjectLink(link), nil
}

// Me returns the authenticated caller.
func (r *Resolver) Me(ctx context.Context, rc *RequestContext) (UserPayload, error) {
	user, err := r.currentUser(ctx, rc)
	if err != nil {
		return UserPayload{}, err
	}
	return ProjectUser(user), nil
}

// Post creates a link owned by the caller and publishes it on TopicNewLink.
func (r *Resolver) Post(ctx context.Context, rc *RequestContext, rawURL, description string) (LinkPayload, error) {
	userID, err := rc.Identity.Require()
	if err != nil {
		return LinkPayload{}, err
	}

	rawURL = strings.TrimSpace(rawURL)
	description = strings.TrimSpace(description)
	if err := validateURL(rawURL); err != nil {
		return LinkPayload{}, err
	}
	if description == "" {
		return LinkPayload{}, apperr.New(apperr.InvalidInput, "description is required")
	}

	link, err := rc.Data.Links.CreateLink(ctx, rawURL, description, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			// The token names a user that no longer exists.
			return LinkPayload{}, apperr.ErrNotAuthenticated
		}
		return LinkPayload{}, unavailable(err)
	}

	rc.Events.Publish(TopicNewLink, link)
	log.Info().Int64("link_id", link.ID).Int64("user_id", userID).Msg("Link posted")
	return ProjectLink(link), nil
}

// Vote records the caller's vote for linkID. A second vote by the same
// caller fails with apperr.ErrAlreadyVoted.
func (r *Resolver) Vote(ctx context.Context, rc *RequestContext, linkID int64) (VotePayload, error) {
	user, err := r.currentUser(ctx, rc)
	if err != nil {
		return VotePayload{}, err
	}

	link, err := rc.Data.Links.GetLinkByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return VotePayload{}, apperr.ErrLinkNotFound
		}
		return VotePayload{}, unavailable(err)
	}

	exists, err := rc.Data.Votes.VoteExists(ctx, user.ID, linkID)
	if err != nil {
		return VotePayload{}, unavailable(err)
	}
	if exists {
		return VotePayload{}, apperr.ErrAlreadyVoted
	}

	// The unique constraint decides races the existence check cannot.
	vote, err := rc.Data.Votes.CreateVote(ctx, user.ID, linkID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConflict):
			return VotePayload{}, apperr.ErrAlreadyVoted
		case errors.Is(err, services.ErrNotFound):
			return VotePayload{}, apperr.ErrLinkNotFound
		}
		return VotePayload{}, unavailable(err)
	}

	updated, err := rc.Data.Links.GetLinkByID(ctx, linkID)
	if err != nil {
		log.Warn().Err(err).Int64("link_id", linkID).Msg("Failed to reload link after vote")
		updated = link
		updated.VoteCount++
	}
	return ProjectVote(vote, updated, user), nil
}

// Signup creates a user and returns a token for it.
func (r *Resolver) Signup(ctx context.Context, rc *RequestContext, login, password string) (AuthPayload, error) {
	login = strings.TrimSpace(login)
	if err := validateCredentials(login, password); err != nil {
		return AuthPayload{}, err
	}

	digest, err := r.hasher.Hash(password)
	if err != nil {
		return AuthPayload{}, apperr.Wrap(apperr.Internal, "could not create user", err)
	}

	user, err := rc.Data.Users.CreateUser(ctx, login, digest)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			return AuthPayload{}, apperr.ErrLoginTaken
		}
		return AuthPayload{}, unavailable(err)
	}

	return r.authPayload(user)
}

// Login checks credentials and returns a token. Unknown logins and wrong
// passwords are indistinguishable to the caller.
func (r *Resolver) Login(ctx context.Context, rc *RequestContext, login, password string) (AuthPayload, error) {
	login = strings.TrimSpace(login)

	user, err := rc.Data.Users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			r.hasher.VerifyDummy(password)
			return AuthPayload{}, apperr.ErrInvalidCredentials
		}
		return AuthPayload{}, unavailable(err)
	}
	if !r.hasher.Verify(password, user.PasswordHash) {
		return AuthPayload{}, apperr.ErrInvalidCredentials
	}

	return r.authPayload(user)
}

// NewLink streams every link posted after the call. The stream closes when
// ctx is done or the event channel drops the subscription.
func (r *Resolver) NewLink(ctx context.Context, rc *RequestContext) <-chan LinkPayload {
	sub := rc.Events.Subscribe(ctx, TopicNewLink)
	out := make(chan LinkPayload)

	go func() {
		defer close(out)
		for event := range sub.Events() {
			link, ok := event.(models.Link)
			if !ok {
				log.Warn().Str("subscription_id", sub.ID).Msgf("Unexpected %T on %s", event, TopicNewLink)
				continue
			}
			select {
			case out <- ProjectLink(link):
			case <-ctx.Done():
				sub.Close()
				return
			}
		}
	}()

	return out
}

func (r *Resolver) currentUser(ctx context.Context, rc *RequestContext) (models.User, error) {
	userID, err := rc.Identity.Require()
	if err != nil {
		return models.User{}, err
	}
	user, err := rc.Data.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return models.User{}, apperr.ErrNotAuthenticated
		}
		return models.User{}, unavailable(err)
	}
	return user, nil
}

func (r *Resolver) authPayload(user models.User) (AuthPayload, error) {
	token, err := r.tokens.Issue(user.ID)
	if err != nil {
		return AuthPayload{}, apperr.Wrap(apperr.Internal, "failed to issue token", err)
	}
	return AuthPayload{Token: token, User: ProjectUser(user)}, nil
}

func unavailable(err error) error {
	return apperr.Wrap(apperr.DataUnavailable, "data store unavailable", err)
}

func validateURL(raw string) error {
	if raw == "" {
		return apperr.New(apperr.InvalidInput, "url is required")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.New(apperr.InvalidInput, "url must be an absolute http or https URL")
	}
	return nil
}

func validateCredentials(login, password string) error {
	switch {
	case login == "":
		return apperr.New(apperr.InvalidInput, "login is required")
	case len(login) > maxLoginLength:
		return apperr.New(apperr.InvalidInput, "login is too long")
	case password == "":
		return apperr.New(apperr.InvalidInput, "password is required")
	case len(password) > maxPasswordLength:
		return apperr.New(apperr.InvalidInput, "password must be at most 72 bytes")
	}
	return nil
}
