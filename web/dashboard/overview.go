package dashboard

import (
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// overviewCard summarizes one resource. Each card loads on its own, so one
// failing list leaves the others intact.
type overviewCard struct {
	Total int
	Error string
}

type overviewPage struct {
	Repositories overviewCard
	// Analyzed counts analyzed repositories among the Loaded most recent.
	Analyzed  int
	Loaded    int
	GitTokens overviewCard
	APIKeys   overviewCard
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	repos, tokens, keys := s.repositories(r), s.gitTokens(r), s.apiKeys(r)
	defer repos.Unmount()
	defer tokens.Unmount()
	defer keys.Unmount()

	var (
		g                            errgroup.Group
		reposErr, tokensErr, keysErr error
	)
	g.Go(func() error { reposErr = repos.Mount(r.Context()); return nil })
	g.Go(func() error { tokensErr = tokens.Mount(r.Context()); return nil })
	g.Go(func() error { keysErr = keys.Mount(r.Context()); return nil })
	g.Wait()

	if s.reauthenticate(w, r, errors.Join(reposErr, tokensErr, keysErr)) {
		return
	}

	repoSnap := repos.Snapshot()
	data := overviewPage{
		Repositories: overviewCard{Total: repoSnap.Total, Error: loadError(reposErr)},
		Loaded:       len(repoSnap.Items),
		GitTokens:    overviewCard{Total: tokens.Snapshot().Total, Error: loadError(tokensErr)},
		APIKeys:      overviewCard{Total: keys.Snapshot().Total, Error: loadError(keysErr)},
	}
	for _, repo := range repoSnap.Items {
		if repo.Analyzed() {
			data.Analyzed++
		}
	}

	s.render(w, r, http.StatusOK, "overview", PageData{
		Title:  "Overview",
		Active: "overview",
		Data:   data,
	})
}
