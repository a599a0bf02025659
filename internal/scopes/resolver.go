package scopes

import (
	"sort"
	"strconv"
	"strings"

	membershipdomain "github.com/worldzhy/newbie.saas/internal/membership/domain"
	userdomain "github.com/worldzhy/newbie.saas/internal/user/domain"
)

const (
	userIDPlaceholder = "{userId}"
	teamIDPlaceholder = "{teamId}"
)

// ForUser computes the user's full effective scope set from their role and
// team memberships. The result is sorted and free of duplicates: two calls
// with the same inputs yield identical slices.
func ForUser(user *userdomain.User, memberships []*membershipdomain.Membership) []string {
	set := make(map[string]struct{})

	if user.Role == userdomain.RoleSudo {
		for s := range SudoScopes {
			set[s] = struct{}{}
		}
		return sorted(set)
	}

	id := strconv.FormatInt(user.ID, 10)
	addSubstituted(set, UserScopes, userIDPlaceholder, id)
	addSubstituted(set, UserScopesCustomized, userIDPlaceholder, id)

	for _, m := range memberships {
		set["membership-"+strconv.FormatInt(m.ID, 10)+":*"] = struct{}{}
		teamID := strconv.FormatInt(m.TeamID, 10)
		switch m.Role {
		case membershipdomain.RoleOwner:
			addSubstituted(set, TeamOwnerScopes, teamIDPlaceholder, teamID)
		case membershipdomain.RoleAdmin:
			addSubstituted(set, TeamAdminScopes, teamIDPlaceholder, teamID)
		case membershipdomain.RoleMember:
			addSubstituted(set, TeamMemberScopes, teamIDPlaceholder, teamID)
			addSubstituted(set, TeamMemberScopesCustomized, teamIDPlaceholder, teamID)
		}
	}
	return sorted(set)
}

// ForUserKeys returns the scope universe an API key owned by the user (with
// no team) may draw from. Unlike ForUser it ignores memberships: a personal
// key only delegates the user's own capabilities.
func ForUserKeys(user *userdomain.User) map[string]string {
	out := make(map[string]string, len(UserScopes)+len(SudoScopes))
	if user.Role == userdomain.RoleSudo {
		for k, v := range SudoScopes {
			out[k] = v
		}
	}
	id := strconv.FormatInt(user.ID, 10)
	for k, v := range UserScopes {
		out[strings.ReplaceAll(k, userIDPlaceholder, id)] = v
	}
	return out
}

// ForTeamKeys returns the scope universe an API key on behalf of the team may
// draw from: the full OWNER bundle with the team id substituted. The caller's
// own role is clipped separately through the owner's effective scopes.
func ForTeamKeys(teamID int64) map[string]string {
	id := strconv.FormatInt(teamID, 10)
	out := make(map[string]string, len(TeamOwnerScopes))
	for k, v := range TeamOwnerScopes {
		out[strings.ReplaceAll(k, teamIDPlaceholder, id)] = v
	}
	return out
}

func addSubstituted(set map[string]struct{}, catalog map[string]string, placeholder, id string) {
	for template := range catalog {
		set[strings.ReplaceAll(template, placeholder, id)] = struct{}{}
	}
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
