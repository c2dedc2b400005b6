package auth

import (
	"time"

	"github.com/opencollective/opencollective-api-sub009/internal/models"
)

// TokenKind tells how the actor authenticated
type TokenKind string

const (
	TokenKindSession  TokenKind = "session"
	TokenKindOAuth    TokenKind = "oauth"
	TokenKindPersonal TokenKind = "personal"
)

// Actor is the authenticated user behind a request. A nil *Actor is the anonymous caller
// and every method is safe to call on it.
type Actor struct {
	User                *models.User
	Profile             *models.Collective
	Token               TokenKind
	Scopes              []string
	TwoFactorVerifiedAt *time.Time

	roles            map[int64][]models.MemberRole
	rootCollectiveID int64
}

// NewActor builds an actor from a user, its profile and the memberships of that profile
func NewActor(user *models.User, profile *models.Collective, memberships []*models.Member, rootCollectiveID int64) *Actor {
	roles := make(map[int64][]models.MemberRole, len(memberships))
	for _, m := range memberships {
		if user != nil && m.MemberCollectiveID != user.CollectiveID {
			continue
		}
		roles[m.CollectiveID] = append(roles[m.CollectiveID], m.Role)
	}

	return &Actor{
		User:             user,
		Profile:          profile,
		Token:            TokenKindSession,
		roles:            roles,
		rootCollectiveID: rootCollectiveID,
	}
}

// ID returns the user id, or 0 for anonymous callers
func (a *Actor) ID() int64 {
	if a == nil || a.User == nil {
		return 0
	}
	return a.User.ID
}

// CollectiveID returns the id of the actor's own profile
func (a *Actor) CollectiveID() int64 {
	if a == nil || a.User == nil {
		return 0
	}
	return a.User.CollectiveID
}

// IsAuthenticated reports whether a user is behind the request
func (a *Actor) IsAuthenticated() bool {
	return a.ID() != 0
}

// HasRole reports whether the actor holds any of roles in collectiveID
func (a *Actor) HasRole(collectiveID int64, roles ...models.MemberRole) bool {
	if a == nil || collectiveID == 0 {
		return false
	}
	for _, held := range a.roles[collectiveID] {
		for _, r := range roles {
			if held == r {
				return true
			}
		}
	}
	return false
}

// IsAdmin is true for the actor's own profile and every collective where it is ADMIN
func (a *Actor) IsAdmin(collectiveID int64) bool {
	if !a.IsAuthenticated() || collectiveID == 0 {
		return false
	}
	if a.CollectiveID() == collectiveID {
		return true
	}
	return a.HasRole(collectiveID, models.MemberRoleAdmin)
}

// IsMember is true for admins and plain members of collectiveID
func (a *Actor) IsMember(collectiveID int64) bool {
	return a.IsAdmin(collectiveID) || a.HasRole(collectiveID, models.MemberRoleMember)
}

// IsAdminOfCollective also grants admins of the parent collective (events, projects)
func (a *Actor) IsAdminOfCollective(c *models.Collective) bool {
	if c == nil {
		return false
	}
	if a.IsAdmin(c.ID) {
		return true
	}
	return c.ParentCollectiveID != nil && a.IsAdmin(*c.ParentCollectiveID)
}

// IsHostAdmin is true when the actor administers the fiscal host of c
func (a *Actor) IsHostAdmin(c *models.Collective) bool {
	if c == nil || c.HostCollectiveID == nil {
		return false
	}
	return a.IsAdmin(*c.HostCollectiveID)
}

func (a *Actor) IsAdminOfCollectiveOrHost(c *models.Collective) bool {
	return a.IsAdminOfCollective(c) || a.IsHostAdmin(c)
}

// IsRoot reports platform-level admin rights
func (a *Actor) IsRoot() bool {
	if a == nil || a.rootCollectiveID == 0 {
		return false
	}
	return a.HasRole(a.rootCollectiveID, models.MemberRoleAdmin)
}

// IsScoped reports whether the credentials restrict the actor to a scope list
func (a *Actor) IsScoped() bool {
	if a == nil {
		return false
	}
	return a.Token == TokenKindOAuth || a.Token == TokenKindPersonal
}

// HasScope checks the token's scope list
func (a *Actor) HasScope(scope string) bool {
	if a == nil {
		return false
	}
	for _, s := range a.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// HasTwoFactorEnabled reports whether the user enrolled a second factor
func (a *Actor) HasTwoFactorEnabled() bool {
	return a != nil && a.User != nil && a.User.TwoFactorEnabled
}

// AdministratedCollectiveIDs lists the collectives where the actor is ADMIN
func (a *Actor) AdministratedCollectiveIDs() []int64 {
	if a == nil {
		return nil
	}
	ids := make([]int64, 0, len(a.roles))
	for id := range a.roles {
		if a.HasRole(id, models.MemberRoleAdmin) {
			ids = append(ids, id)
		}
	}
	return ids
}
