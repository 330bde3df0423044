package core

import (
	"sort"
	"strings"
)

// Roster is the full set of user profiles split into the two admin
// dashboard tabs.
type Roster struct {
	Pending []Profile
	Active  []Profile
}

// IsPending reports whether a profile is awaiting administrator approval.
// Admin profiles are never pending.
func (p Profile) IsPending() bool {
	return !p.Approved && !p.IsAdmin()
}

// PartitionRoster splits profiles into pending (unapproved, non-admin) and
// active (approved or admin) subsets, each ordered by display name
// ascending. Every profile lands in exactly one subset.
func PartitionRoster(profiles []Profile) Roster {
	var r Roster
	for _, p := range profiles {
		if p.IsPending() {
			r.Pending = append(r.Pending, p)
		} else {
			r.Active = append(r.Active, p)
		}
	}
	sortByName(r.Pending)
	sortByName(r.Active)
	return r
}

// PendingCount returns how many profiles await approval.
func PendingCount(profiles []Profile) int {
	n := 0
	for _, p := range profiles {
		if p.IsPending() {
			n++
		}
	}
	return n
}

func sortByName(ps []Profile) {
	sort.SliceStable(ps, func(i, j int) bool {
		return strings.ToLower(ps[i].Name) < strings.ToLower(ps[j].Name)
	})
}
