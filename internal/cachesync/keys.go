// Package cachesync maps job and entity events to the cached queries they
// make stale, and applies those invalidations to a cache store.
package cachesync

import (
	"fmt"
	"sort"
	"strings"

	"content-studio/internal/domain/model"
)

type Family string

const (
	FamilyDetail Family = "detail"
	FamilyList   Family = "list"
	FamilyAdmin  Family = "admin"
)

// AdminPrefix is the key prefix shared by every admin aggregate.
const AdminPrefix = "admin"

// Key identifies one cached query.
type Key struct {
	Scope  string
	Family Family
	ID     string
}

func DetailKey(t model.EntityType, id string) Key {
	return Key{Scope: string(t), Family: FamilyDetail, ID: id}
}

func ListKey(t model.EntityType) Key {
	return Key{Scope: string(t), Family: FamilyList}
}

// AdminKey names an admin aggregate, e.g. AdminKey("job-stats") -> "admin-job-stats".
func AdminKey(name string) Key {
	return Key{Scope: AdminPrefix, Family: FamilyAdmin, ID: name}
}

// String renders the key as "podcast-detail(pod_1)", "podcast-list" or
// "admin-<name>".
func (k Key) String() string {
	switch k.Family {
	case FamilyDetail:
		return fmt.Sprintf("%s-detail(%s)", k.Scope, k.ID)
	case FamilyList:
		return k.Scope + "-list"
	case FamilyAdmin:
		return AdminPrefix + "-" + k.ID
	}
	return k.Scope
}

// OwnerVariant is the per-owner form of a list key held by server caches.
func (k Key) OwnerVariant(ownerID string) string {
	if ownerID == "" {
		ownerID = "*"
	}
	return k.String() + ":" + ownerID
}

// Invalidation is the set of cached queries an event makes stale.
type Invalidation struct {
	Keys     []Key
	Prefixes []string
}

func (inv Invalidation) Empty() bool { return len(inv.Keys) == 0 && len(inv.Prefixes) == 0 }

func (inv Invalidation) KeyStrings() []string {
	out := make([]string, 0, len(inv.Keys))
	for _, k := range inv.Keys {
		out = append(out, k.String())
	}
	return out
}

// Matches reports whether a cached query key is stale under inv. Owner
// variants ("podcast-list:u1") match their base key.
func (inv Invalidation) Matches(cacheKey string) bool {
	base := cacheKey
	if i := strings.LastIndex(cacheKey, ":"); i > 0 {
		base = cacheKey[:i]
	}
	for _, k := range inv.Keys {
		if s := k.String(); s == cacheKey || s == base {
			return true
		}
	}
	for _, p := range inv.Prefixes {
		if strings.HasPrefix(cacheKey, p) {
			return true
		}
	}
	return false
}

// Merge returns the union of two invalidations in a stable order.
func (inv Invalidation) Merge(other Invalidation) Invalidation {
	keys := map[string]Key{}
	for _, k := range append(append([]Key{}, inv.Keys...), other.Keys...) {
		keys[k.String()] = k
	}
	prefixes := map[string]struct{}{}
	for _, p := range append(append([]string{}, inv.Prefixes...), other.Prefixes...) {
		prefixes[p] = struct{}{}
	}
	out := Invalidation{}
	names := make([]string, 0, len(keys))
	for s := range keys {
		names = append(names, s)
	}
	sort.Strings(names)
	for _, s := range names {
		out.Keys = append(out.Keys, keys[s])
	}
	for p := range prefixes {
		out.Prefixes = append(out.Prefixes, p)
	}
	sort.Strings(out.Prefixes)
	return out
}
