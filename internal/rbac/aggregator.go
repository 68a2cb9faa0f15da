package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/medportal/medportal/internal/backend"
	"github.com/medportal/medportal/internal/shared"
)

const defaultFanOut = 4

// Aggregator resolves the effective permissions of a principal from its roles.
type Aggregator struct {
	dir     Directory
	cache   *expirable.LRU[string, []backend.Permission]
	fanOut  int
	logger  *slog.Logger
	partial func()
}

// AggregatorOption customises an Aggregator.
type AggregatorOption func(*Aggregator)

// WithRoleCache keeps resolved role permissions for ttl. A non-positive size
// or ttl disables caching.
func WithRoleCache(size int, ttl time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if size <= 0 || ttl <= 0 {
			a.cache = nil
			return
		}
		a.cache = expirable.NewLRU[string, []backend.Permission](size, nil, ttl)
	}
}

// WithFanOut bounds the number of concurrent role lookups.
func WithFanOut(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.fanOut = n
		}
	}
}

// WithAggregatorLogger attaches a logger.
func WithAggregatorLogger(l *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithPartialHook registers fn to run whenever a result is missing roles.
func WithPartialHook(fn func()) AggregatorOption {
	return func(a *Aggregator) { a.partial = fn }
}

// NewAggregator constructs an Aggregator.
func NewAggregator(dir Directory, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{dir: dir, fanOut: defaultFanOut, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Effective returns the permissions granted to principal. Administrators get
// the full catalog. Other principals get the active permissions of each of
// their roles, fetched concurrently, flattened in role order and
// de-duplicated by id with the first occurrence kept.
//
// A role whose lookup fails, including by upstream timeout, is reported in
// Result.Failed and the remaining roles are still returned. An upstream 401
// or a done ctx aborts the whole aggregation.
func (a *Aggregator) Effective(ctx context.Context, principal *shared.Principal) (Result, error) {
	if principal == nil {
		return Result{}, nil
	}
	if principal.HasRole(shared.RoleAdmin) {
		perms, err := a.dir.ListPermissions(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("rbac: list permissions: %w", err)
		}
		return Result{Permissions: perms, Full: true}, nil
	}

	roles := shared.NormalizeRoles(principal.Roles)
	if len(roles) == 0 {
		return Result{Permissions: []backend.Permission{}}, nil
	}

	perRole := make([][]backend.Permission, len(roles))
	failed := make([]bool, len(roles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.fanOut)
	for i, role := range roles {
		g.Go(func() error {
			perms, err := a.rolePermissions(gctx, role)
			if err != nil {
				// a per-request upstream timeout only loses this role; the
				// caller's own cancellation loses everything
				if errors.Is(err, backend.ErrUnauthorized) || ctx.Err() != nil {
					return err
				}
				a.logger.Warn("role permissions unavailable", slog.String("role", role), slog.Any("error", err))
				failed[i] = true
				return nil
			}
			perRole[i] = perms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	result := Result{Permissions: make([]backend.Permission, 0)}
	seen := make(map[string]struct{})
	for i, role := range roles {
		if failed[i] {
			result.Failed = append(result.Failed, role)
			continue
		}
		for _, perm := range perRole[i] {
			if _, dup := seen[perm.ID]; dup {
				continue
			}
			seen[perm.ID] = struct{}{}
			result.Permissions = append(result.Permissions, perm)
		}
	}
	if result.Partial() && a.partial != nil {
		a.partial()
	}
	return result, nil
}

// Invalidate drops the cached permissions of roles.
func (a *Aggregator) Invalidate(roles ...string) {
	if a == nil || a.cache == nil {
		return
	}
	for _, role := range roles {
		a.cache.Remove(role)
	}
}

// InvalidateAll drops every cached role.
func (a *Aggregator) InvalidateAll() {
	if a != nil && a.cache != nil {
		a.cache.Purge()
	}
}

func (a *Aggregator) rolePermissions(ctx context.Context, role string) ([]backend.Permission, error) {
	if a.cache != nil {
		if perms, ok := a.cache.Get(role); ok {
			return perms, nil
		}
	}
	links, err := a.dir.ActivePermissionsByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	perms := make([]backend.Permission, 0, len(links))
	for _, link := range links {
		if link.Permission == nil {
			continue
		}
		perms = append(perms, *link.Permission)
	}
	if a.cache != nil {
		a.cache.Add(role, perms)
	}
	return perms, nil
}
