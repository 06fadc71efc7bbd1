package index

import (
	"github.com/0xPuncker/cron-panel/pkg/identity"
	"github.com/0xPuncker/cron-panel/pkg/types"
)

// AllowList holds the hook names that belong to the host platform itself.
type AllowList map[string]struct{}

func NewAllowList(names ...string) AllowList {
	a := make(AllowList, len(names))
	for _, name := range names {
		a[name] = struct{}{}
	}
	return a
}

// Contains is an exact, case-sensitive match.
func (a AllowList) Contains(hook string) bool {
	_, ok := a[hook]
	return ok
}

// Key identifies one occurrence within a snapshot.
type Key struct {
	At   int64
	Hook string
	Hash string
}

// Index is the classified, read-only view of one enumeration. Build it per request
// and drop it afterwards; it is never mutated once built.
type Index struct {
	Core  types.Snapshot
	User  types.Snapshot
	Total int

	hooks  map[string]struct{}
	times  map[int64]struct{}
	hashes map[string]struct{}
	keys   map[Key]types.Occurrence
	order  []int64
}

// Build classifies every occurrence of snapshot into Core or User. Occurrences are
// re-keyed by their identity hash so the build side and the validation side always
// derive the same token from the same args.
func Build(snapshot types.Snapshot, system AllowList) *Index {
	idx := &Index{
		Core:   make(types.Snapshot),
		User:   make(types.Snapshot),
		hooks:  make(map[string]struct{}),
		times:  make(map[int64]struct{}),
		hashes: make(map[string]struct{}),
		keys:   make(map[Key]types.Occurrence),
	}

	for _, at := range snapshot.Times() {
		for _, hook := range snapshot.Hooks(at) {
			for _, storeKey := range snapshot.Hashes(at, hook) {
				data := snapshot[at][hook][storeKey]
				hash := identity.Hash(data.Args)

				key := Key{At: at, Hook: hook, Hash: hash}
				if _, dup := idx.keys[key]; dup {
					continue
				}

				idx.Total++
				if system.Contains(hook) {
					idx.Core.Put(at, hook, hash, data)
				} else {
					idx.User.Put(at, hook, hash, data)
				}

				idx.hooks[hook] = struct{}{}
				idx.times[at] = struct{}{}
				idx.hashes[hash] = struct{}{}
				idx.keys[key] = types.Occurrence{
					ScheduledAt: at,
					Hook:        hook,
					Hash:        hash,
					Schedule:    data.Schedule,
					Interval:    data.Interval,
					Args:        data.Args,
				}
			}
		}
		if _, ok := idx.times[at]; ok {
			idx.order = append(idx.order, at)
		}
	}

	return idx
}

func (idx *Index) KnownHook(hook string) bool {
	_, ok := idx.hooks[hook]
	return ok
}

func (idx *Index) KnownTime(at int64) bool {
	_, ok := idx.times[at]
	return ok
}

func (idx *Index) KnownHash(hash string) bool {
	_, ok := idx.hashes[hash]
	return ok
}

// Contains checks the joint (time, hook, hash) key.
func (idx *Index) Contains(key Key) bool {
	_, ok := idx.keys[key]
	return ok
}

func (idx *Index) Lookup(key Key) (types.Occurrence, bool) {
	occ, ok := idx.keys[key]
	return occ, ok
}

// Next returns the soonest scheduled timestamp.
func (idx *Index) Next() (int64, bool) {
	if len(idx.order) == 0 {
		return 0, false
	}
	return idx.order[0], true
}

func (idx *Index) Empty() bool {
	return idx.Total == 0
}

func (idx *Index) CoreCount() int {
	return idx.Core.Len()
}

func (idx *Index) UserCount() int {
	return idx.User.Len()
}

// Occurrences flattens one of the classified sets in display order.
func (idx *Index) Occurrences(set types.Snapshot) []types.Occurrence {
	out := make([]types.Occurrence, 0, set.Len())
	for _, at := range set.Times() {
		for _, hook := range set.Hooks(at) {
			for _, hash := range set.Hashes(at, hook) {
				out = append(out, idx.keys[Key{At: at, Hook: hook, Hash: hash}])
			}
		}
	}
	return out
}
