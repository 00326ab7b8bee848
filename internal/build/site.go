package build

import (
	"context"
	"sort"

	"git.home.luguber.info/inful/sitecompiler/internal/config"
	"git.home.luguber.info/inful/sitecompiler/internal/rep"
)

// Site is exposed to filters as the "site" assign. Its reads go through
// the rep layer, so they are recorded as dependencies of the item being
// compiled and suspend it while the target is not compiled yet.
//
// Site carries the context of the compilation it was created for; templates
// have no other way to pass one.
type Site struct {
	ctx  context.Context //nolint:containedctx // template methods cannot take a context
	reps map[repKey]*rep.Rep
}

// CompiledContent returns the default compiled content of the default rep
// of identifier.
func (s *Site) CompiledContent(identifier string) (string, error) {
	r, err := s.rep(identifier, config.DefaultRep)
	if err != nil {
		return "", err
	}
	return r.CompiledContent(s.ctx, "")
}

// Snapshot returns a named snapshot of a rep of identifier.
func (s *Site) Snapshot(identifier, repName, snapshotName string) (string, error) {
	r, err := s.rep(identifier, repName)
	if err != nil {
		return "", err
	}
	return r.CompiledContent(s.ctx, snapshotName)
}

// Path returns the public path of the default rep of identifier.
func (s *Site) Path(identifier string) (string, error) {
	r, err := s.rep(identifier, config.DefaultRep)
	if err != nil {
		return "", err
	}
	return r.Path(s.ctx, "")
}

// Items lists the identifiers that have at least one rep, sorted.
func (s *Site) Items() []string {
	seen := map[string]struct{}{}
	for k := range s.reps {
		seen[k.item] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Site) rep(identifier, repName string) (*rep.Rep, error) {
	r, ok := s.reps[repKey{item: identifier, rep: repName}]
	if !ok {
		return nil, ErrUnknownItem.WithContext("item", identifier).WithContext("rep", repName)
	}
	return r, nil
}
