// Package roles maps Graph principals to searchable ACL role strings.
//
// Classification is deliberately fail-open: when a principal cannot be
// classified as a user or a group, roles for both interpretations are
// emitted. Over-sharing a document to one wrong role is recoverable;
// under-sharing silently hides it from people who should see it.
package roles

import (
	"context"
	"log/slog"

	"github.com/custodia-labs/m365-crawler/internal/graph"
)

// Principal is a user or group identity attached to a permission grant.
// Either field may be empty.
type Principal struct {
	ID    string
	Email string
}

// Directory is the subset of the Graph client the resolver needs.
type Directory interface {
	GetUserType(ctx context.Context, id string) graph.UserType
	GroupIDsByEmail(ctx context.Context, email string) ([]string, error)
}

// Encoder produces opaque role strings from a raw principal key. The
// downstream index owns the encoding; the resolver never builds role
// strings itself.
type Encoder interface {
	UserRole(key string) string
	GroupRole(key string) string
}

// PrefixEncoder is the default role encoding: "<prefix><key>".
type PrefixEncoder struct {
	UserPrefix  string
	GroupPrefix string
}

// DefaultEncoder encodes roles as "user:<key>" and "group:<key>".
func DefaultEncoder() PrefixEncoder {
	return PrefixEncoder{UserPrefix: "user:", GroupPrefix: "group:"}
}

// UserRole encodes a user-scoped role.
func (e PrefixEncoder) UserRole(key string) string { return e.UserPrefix + key }

// GroupRole encodes a group-scoped role.
func (e PrefixEncoder) GroupRole(key string) string { return e.GroupPrefix + key }

// Resolver resolves principals to ordered, de-duplicated role sets. It is
// invoked once per permission grant encountered during traversal.
type Resolver struct {
	dir Directory
	enc Encoder
	log *slog.Logger
}

// New creates a resolver over the given directory and role encoder.
func New(dir Directory, enc Encoder, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{dir: dir, enc: enc, log: log}
}

// Resolve maps a principal to its searchable roles. A principal with
// neither id nor email yields no roles; that is logged, never an error.
func (r *Resolver) Resolve(ctx context.Context, p Principal) []string {
	set := newRoleSet()

	switch {
	case p.ID != "":
		r.rolesForID(ctx, p.ID, set)
		if p.Email != "" {
			r.rolesForEmail(ctx, p.Email, set)
		}
	case p.Email != "":
		ids, err := r.dir.GroupIDsByEmail(ctx, p.Email)
		if err != nil {
			r.log.Warn("group lookup by email failed", "email", p.Email, "error", err)
		}
		if len(ids) == 0 {
			// Nothing resolved: fall back to email-keyed roles for both
			// interpretations.
			set.add(r.enc.UserRole(p.Email))
			set.add(r.enc.GroupRole(p.Email))
			break
		}
		for _, id := range ids {
			r.rolesForID(ctx, id, set)
		}
		r.rolesForEmail(ctx, p.Email, set)
	default:
		r.log.Debug("permission grant without id or email, no roles emitted")
	}

	return set.ordered
}

// rolesForID adds roles for one principal id based on its classification.
// Unknown emits both user and group roles.
func (r *Resolver) rolesForID(ctx context.Context, id string, set *roleSet) {
	switch r.dir.GetUserType(ctx, id) {
	case graph.UserTypeUser:
		set.add(r.enc.UserRole(id))
	case graph.UserTypeGroup:
		set.add(r.enc.GroupRole(id))
	default:
		set.add(r.enc.UserRole(id))
		set.add(r.enc.GroupRole(id))
	}
}

// rolesForEmail adds the email-keyed role variants.
func (r *Resolver) rolesForEmail(_ context.Context, email string, set *roleSet) {
	set.add(r.enc.UserRole(email))
	set.add(r.enc.GroupRole(email))
}

// roleSet is an insertion-ordered string set.
type roleSet struct {
	seen    map[string]struct{}
	ordered []string
}

func newRoleSet() *roleSet {
	return &roleSet{seen: make(map[string]struct{})}
}

func (s *roleSet) add(role string) {
	if _, ok := s.seen[role]; ok {
		return
	}
	s.seen[role] = struct{}{}
	s.ordered = append(s.ordered, role)
}
