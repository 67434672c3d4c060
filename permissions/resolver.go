// Package permissions maps an authenticated identity's group memberships to
// the workflow capability set. Roles are resolved from a static table of
// accepted ids and names because the upstream identity source is inconsistent
// about which representation it returns.
package permissions

import (
	"strings"

	"bitbucket.org/mmdatafocus/cdrr_triage/models"
)

type Role string

const (
	RoleCDRR      Role = "CDRR"
	RoleInspector Role = "INSPECTOR"
)

// roleSpec lists every id and name the identity source has been seen to use
// for a role. Kept as data so a new alias is a table edit, not a new branch.
type roleSpec struct {
	ids   []int
	names []string
}

var roleTable = map[Role]roleSpec{
	RoleCDRR: {
		ids:   []int{14},
		names: []string{"CDRR"},
	},
	RoleInspector: {
		ids:   []int{10},
		names: []string{"INSPECTOR", "FROO", "INSPECTOR/FROO"},
	},
}

// Capabilities is the derived, never-persisted permission set. It is
// recomputed on every identity change and never cached beyond the session.
type Capabilities struct {
	CanViewDetails bool `json:"canViewDetails"`
	CanAdd         bool `json:"canAdd"`
	CanUpdate      bool `json:"canUpdate"`
	CanUpdateCDRR  bool `json:"canUpdateCDRR"`
	CanUpdateFROO  bool `json:"canUpdateFROO"`
}

// DenyAll is the failure-mode capability set: viewing stays open, every
// mutating capability is off. Used whenever the identity lookup fails.
func DenyAll() Capabilities {
	return Capabilities{CanViewDetails: true}
}

// HasRole reports whether any membership matches the role's accepted ids or
// accepted names. Both paths are checked every time, independently; name
// comparison is case-insensitive after trimming.
func HasRole(groups []models.Group, role Role) bool {
	spec, ok := roleTable[role]
	if !ok {
		return false
	}
	for _, g := range groups {
		for _, id := range spec.ids {
			if g.ID == id {
				return true
			}
		}
		name := strings.TrimSpace(g.Name)
		for _, accepted := range spec.names {
			if strings.EqualFold(name, accepted) {
				return true
			}
		}
	}
	return false
}

// Resolve derives the capability set from group memberships. A user may hold
// both roles at once; the resulting set carries both update capabilities
// without contradiction.
func Resolve(groups []models.Group) Capabilities {
	isCDRR := HasRole(groups, RoleCDRR)
	isInspector := HasRole(groups, RoleInspector)

	return Capabilities{
		CanViewDetails: true,
		CanAdd:         isCDRR,
		CanUpdate:      isCDRR || isInspector,
		CanUpdateCDRR:  isCDRR,
		CanUpdateFROO:  isInspector,
	}
}

// ResolveUser tolerates a failed identity lookup: a nil user (or an error
// upstream) yields the deny-all set instead of an error. Nothing past this
// boundary ever sees a permissive default.
func ResolveUser(user *models.User) Capabilities {
	if user == nil {
		return DenyAll()
	}
	return Resolve(user.Groups)
}

// ShowPendingFrooTab gates the Inspector-only queue: visible only to users
// who can act on it and cannot act on the CDRR queue instead.
func ShowPendingFrooTab(caps Capabilities) bool {
	return caps.CanUpdateFROO && !caps.CanUpdateCDRR
}

// ShowPendingCdrrTab gates the CDRR-only queue.
func ShowPendingCdrrTab(caps Capabilities) bool {
	return caps.CanUpdateCDRR
}

// VisibleBuckets returns the workflow tabs this capability set may see, in
// display order.
func VisibleBuckets(caps Capabilities) []models.Bucket {
	buckets := []models.Bucket{
		models.BucketAll,
		models.BucketNonPics,
		models.BucketPics,
		models.BucketLetterAndCorrection,
	}
	if ShowPendingFrooTab(caps) {
		buckets = append(buckets, models.BucketPendingFroo)
	}
	if ShowPendingCdrrTab(caps) {
		buckets = append(buckets, models.BucketPendingCdrrReview)
	}
	return buckets
}
