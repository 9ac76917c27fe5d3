/*
directory.go - Directory snapshot loading

PURPOSE:
  Loads the full user directory once per job run and builds the indexes the
  engine and auditor need: username -> tenantId, plus the canonical set of
  tenants.

CONTRACT:
  One full read per invocation. Callers must not assume incremental
  directory updates are reflected until the next LoadDirectory call.
  A failed read aborts the run (DirectoryUnavailableError): reconciling
  against a partial directory would miscount "user has no record" cases
  when the user list itself is incomplete. Correctness over completeness.

SEE ALSO:
  - audit.go: Uses TenantOf as the canonical tenant source
  - store/sqlite: Production DirectoryService implementation
*/
package reconcile

import "context"

// DirectoryService is the external directory collaborator. It returns all
// users in one point read; no filtering parameters are required.
type DirectoryService interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// DirectorySnapshot is the point-in-time view of the directory a run works
// against. Users preserves the directory's return order (the stable
// within-date processing order).
type DirectorySnapshot struct {
	Users    []User
	TenantOf map[string]TenantID
	Tenants  map[TenantID]bool
}

// LoadDirectory performs the single full directory read and builds the
// snapshot indexes. Wraps any failure as DirectoryUnavailableError.
func LoadDirectory(ctx context.Context, svc DirectoryService) (*DirectorySnapshot, error) {
	users, err := svc.ListUsers(ctx)
	if err != nil {
		return nil, &DirectoryUnavailableError{Cause: err}
	}

	snap := &DirectorySnapshot{
		Users:    users,
		TenantOf: make(map[string]TenantID, len(users)),
		Tenants:  make(map[TenantID]bool),
	}
	for _, u := range users {
		snap.TenantOf[u.Username] = u.TenantID
		snap.Tenants[u.TenantID] = true
	}
	return snap, nil
}

// Canonical returns the directory's tenant for a username, and whether the
// username exists in the directory at all.
func (s *DirectorySnapshot) Canonical(username string) (TenantID, bool) {
	t, ok := s.TenantOf[username]
	return t, ok
}
