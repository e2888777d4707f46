package cachesync

import "content-studio/internal/domain/model"

// Route maps an event to the cached queries it invalidates. It is a pure
// function of the event so duplicate or reordered delivery yields the same
// result every time. Keys are ordered detail first, then list.
//
//	kind                          detail            list
//	job-completion                if target known   only if the job type affects lists
//	<entity>-job-completion       yes               yes
//	entity-change insert|delete   yes               yes
//	entity-change update          yes               no
//	activity-logged               admin prefix only
func Route(ev model.Event) Invalidation {
	switch {
	case ev.Kind == model.EventActivityLogged:
		return Invalidation{Prefixes: []string{AdminPrefix}}
	case ev.Kind == model.EventEntityChange:
		return routeEntityChange(ev)
	case ev.Kind == model.EventJobCompletion:
		t, id := ev.Target()
		return entityKeys(t, id, ev.JobType.AffectsList())
	case ev.Kind.IsCompletion():
		t, id := ev.Target()
		return entityKeys(t, id, true)
	}
	return Invalidation{}
}

func routeEntityChange(ev model.Event) Invalidation {
	t, id := ev.Target()
	switch ev.ChangeType {
	case model.ChangeUpdate:
		return entityKeys(t, id, false)
	default:
		// insert, delete and unknown change types all touch membership
		return entityKeys(t, id, true)
	}
}

func entityKeys(t model.EntityType, id string, withList bool) Invalidation {
	if !t.Valid() {
		return Invalidation{}
	}
	var inv Invalidation
	if id != "" {
		inv.Keys = append(inv.Keys, DetailKey(t, id))
	}
	if withList {
		inv.Keys = append(inv.Keys, ListKey(t))
	}
	return inv
}
