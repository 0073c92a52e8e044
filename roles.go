package jobboard

import "strings"

// Role is a normalized role name. Values are the backend's canonical names
// in lower case; comparisons downstream of ParseRole are plain equality.
type Role string

const (
	// RoleAdmin administers every organization and validates offers
	RoleAdmin Role = "administrateur"
	// RoleRecruiter owns a single organization
	RoleRecruiter Role = "recruteur"
	// RoleCandidate applies to offers
	RoleCandidate Role = "candidat"
	// RoleCommunityManager manages offers on behalf of several organizations
	RoleCommunityManager Role = "community_manager"
)

var roleAliases = map[string]Role{
	"administrateur":    RoleAdmin,
	"admin":             RoleAdmin,
	"administrator":     RoleAdmin,
	"recruteur":         RoleRecruiter,
	"recruiter":         RoleRecruiter,
	"candidat":          RoleCandidate,
	"candidate":         RoleCandidate,
	"community_manager": RoleCommunityManager,
	"community manager": RoleCommunityManager,
	"community-manager": RoleCommunityManager,
	"communitymanager":  RoleCommunityManager,
}

// ParseRole parses a role name case-insensitively. Unknown names are kept in
// normalized form so they still compare equal to themselves, but ok is false.
func ParseRole(name string) (Role, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", false
	}
	if role, ok := roleAliases[key]; ok {
		return role, true
	}
	return Role(key), false
}

// ParseRoles parses a list of names keeping the original order and dropping
// empty entries and duplicates.
func ParseRoles(names []string) []Role {
	out := make([]Role, 0, len(names))
	seen := make(map[Role]struct{}, len(names))
	for _, name := range names {
		role, _ := ParseRole(name)
		if role == "" {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleRecruiter, RoleCandidate, RoleCommunityManager:
		return true
	default:
		return false
	}
}

// ManagesOffers reports whether the role can author offers for an organization.
func (r Role) ManagesOffers() bool {
	return r == RoleRecruiter || r == RoleCommunityManager
}

func (r Role) String() string {
	return string(r)
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleRecruiter,
		RoleCandidate,
		RoleCommunityManager,
	}
}

// RoleNames converts roles back into their wire names.
func RoleNames(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func containsRole(roles []Role, target Role) bool {
	for _, r := range roles {
		if r == target {
			return true
		}
	}
	return false
}
