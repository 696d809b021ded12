package portal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"carmon/internal/config"
	"carmon/internal/perrors"
	"carmon/internal/registry"
)

// RegistrySummary is one element of the portal's registry list.
type RegistrySummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Registries lists all registries known to the portal.
func (c *Client) Registries(ctx context.Context, creds config.Credentials) ([]RegistrySummary, error) {
	const op = "portal.Registries"
	var out []RegistrySummary
	if err := c.getJSON(ctx, op, c.paths.Registries, creds, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RegistryDetail fetches the entries of one registry.
func (c *Client) RegistryDetail(ctx context.Context, creds config.Credentials, id string) ([]registry.Entry, error) {
	const op = "portal.RegistryDetail"
	var out []registry.Entry
	path := fmt.Sprintf(c.paths.RegistryDetail, id)
	if err := c.getJSON(ctx, op, path, creds, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchRegistryTable pulls the detail of every listed registry with a
// bounded parallel fan-out and assembles the full reference table. All
// failures are collected before deciding the overall outcome; a single
// failed registry fails the fetch, because a partial reference table would
// silently turn real samples into NO_MATCH rows.
func (c *Client) FetchRegistryTable(ctx context.Context, creds config.Credentials) ([]registry.Entry, error) {
	const op = "portal.FetchRegistryTable"

	summaries, err := c.Registries(ctx, creds)
	if err != nil {
		return nil, err
	}

	perRegistry := make([][]registry.Entry, len(summaries))
	var (
		mu     sync.Mutex
		failed []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fanOutLimit)
	for i, summary := range summaries {
		i, summary := i, summary
		g.Go(func() error {
			entries, err := c.RegistryDetail(gctx, creds, summary.ID)
			if err != nil {
				mu.Lock()
				failed = append(failed, fmt.Sprintf("%s (%v)", summary.ID, err))
				mu.Unlock()
				// Collected, not returned: let the other fetches finish
				// so the report names every broken registry at once.
				return nil
			}
			perRegistry[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, perrors.Wrap(perrors.KindTransport, op, err, "registry fan-out aborted")
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return nil, perrors.New(perrors.KindTransport, op,
			"%d of %d registry fetches failed: %s", len(failed), len(summaries), strings.Join(failed, "; "))
	}

	var table []registry.Entry
	for _, entries := range perRegistry {
		table = append(table, entries...)
	}
	return table, nil
}
