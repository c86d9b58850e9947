// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package auth_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/projectbase/idm/internal/auth"
	"github.com/projectbase/idm/internal/platform/dberr"
	"github.com/projectbase/idm/internal/platform/sec"
)

// # In-Memory Stores
//
// The fakes implement the domain store interfaces with maps so that service
// and resolver behavior can be tested without a database. They return the
// same dberr.ErrNotFound sentinel the pgx stores do.

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*auth.Session

	// calls counts store hits per method name, for memoization assertions.
	calls map[string]int

	// failWith, when set, makes every read fail (simulated outage).
	failWith error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[string]*auth.Session),
		calls:    make(map[string]int),
	}
}

func (store *fakeSessionStore) record(method string) {
	store.calls[method]++
}

func (store *fakeSessionStore) FindByUserID(ctx context.Context, userID string) (*auth.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.record("FindByUserID")
	if store.failWith != nil {
		return nil, store.failWith
	}

	for _, session := range store.sessions {
		if session.UserID == userID && !session.IsDeleted() {
			return cloneSession(session), nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (store *fakeSessionStore) FindByAccessTokenID(ctx context.Context, accessTokenID string) (*auth.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.record("FindByAccessTokenID")
	if store.failWith != nil {
		return nil, store.failWith
	}

	for _, session := range store.sessions {
		if session.AccessTokenID == accessTokenID {
			return cloneSession(session), nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (store *fakeSessionStore) FindByRefreshTokenID(ctx context.Context, refreshTokenID string) (*auth.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.record("FindByRefreshTokenID")
	if store.failWith != nil {
		return nil, store.failWith
	}

	for _, session := range store.sessions {
		if session.RefreshTokenID == refreshTokenID {
			return cloneSession(session), nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (store *fakeSessionStore) Insert(ctx context.Context, session *auth.Session) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.record("Insert")
	store.sessions[session.ID] = cloneSession(session)
	return nil
}

func (store *fakeSessionStore) Update(ctx context.Context, session *auth.Session) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.record("Update")
	if _, ok := store.sessions[session.ID]; !ok {
		return dberr.ErrNotFound
	}
	store.sessions[session.ID] = cloneSession(session)
	return nil
}

func (store *fakeSessionStore) Delete(ctx context.Context, sessionID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.record("Delete")
	session, ok := store.sessions[sessionID]
	if !ok {
		return dberr.ErrNotFound
	}
	session.Status = auth.SessionDeleted
	return nil
}

// InTx runs fn against the same store; the in-memory map needs no locking
// semantics beyond the per-method mutex.
func (store *fakeSessionStore) InTx(ctx context.Context, fn func(tx auth.SessionStore) error) error {
	return fn(store)
}

// get returns the stored row by ID, for assertions.
func (store *fakeSessionStore) get(sessionID string) *auth.Session {
	store.mu.Lock()
	defer store.mu.Unlock()
	return cloneSession(store.sessions[sessionID])
}

// only returns the single stored session, for assertions after login.
func (store *fakeSessionStore) only() *auth.Session {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, session := range store.sessions {
		if !session.IsDeleted() {
			return cloneSession(session)
		}
	}
	return nil
}

func cloneSession(session *auth.Session) *auth.Session {
	if session == nil {
		return nil
	}
	clone := *session
	if session.Device != nil {
		device := *session.Device
		clone.Device = &device
	}
	return &clone
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*auth.User
	calls map[string]int

	failWith error
}

func newFakeUserStore(users ...*auth.User) *fakeUserStore {
	store := &fakeUserStore{
		users: make(map[string]*auth.User),
		calls: make(map[string]int),
	}
	for _, user := range users {
		store.users[user.ID] = user
	}
	return store
}

func (store *fakeUserStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.calls["FindByUsername"]++
	if store.failWith != nil {
		return nil, store.failWith
	}

	for _, user := range store.users {
		if strings.EqualFold(user.UserName, username) {
			return user, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (store *fakeUserStore) FindByID(ctx context.Context, id string) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.calls["FindByID"]++
	if store.failWith != nil {
		return nil, store.failWith
	}

	user, ok := store.users[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return user, nil
}

// # Enrichment Fakes

// staticClassifier returns one fixed profile regardless of input.
type staticClassifier struct {
	profile auth.DeviceProfile
}

func (classifier staticClassifier) Classify(string) auth.DeviceProfile {
	return classifier.profile
}

// fakeGeo either returns a canned location, an error, or blocks until the
// context deadline to simulate a slow provider.
type fakeGeo struct {
	location *auth.LocationInfo
	err      error
	block    bool

	mu    sync.Mutex
	calls int
}

func (geo *fakeGeo) Lookup(ctx context.Context, ipAddress string) (*auth.LocationInfo, error) {
	geo.mu.Lock()
	geo.calls++
	geo.mu.Unlock()

	if geo.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if geo.err != nil {
		return nil, geo.err
	}
	return geo.location, nil
}

// # Fixtures

const testPassword = "S3cure_Passw0rd!"

// testPasswordHash is computed once; bcrypt is deliberately slow.
var testPasswordHash = func() string {
	hash, err := sec.HashPassword(testPassword)
	if err != nil {
		panic(err)
	}
	return hash
}()

func viewerRole() auth.Role {
	return auth.Role{
		ID:   "role-viewer",
		Name: "Viewer",
		Tier: auth.TierNormal,
		Permissions: []auth.Permission{
			{ID: "perm-1", Name: sec.PermUserView},
			{ID: "perm-2", Name: sec.PermPersonView},
		},
	}
}

func adminRole() auth.Role {
	permissions := make([]auth.Permission, 0, len(sec.AllPermissions()))
	for i, key := range sec.AllPermissions() {
		permissions = append(permissions, auth.Permission{ID: "perm-admin-" + string(rune('a'+i)), Name: key})
	}
	return auth.Role{
		ID:          "role-superadmin",
		Name:        "SuperAdmin",
		Tier:        auth.TierSystemAdmin,
		Permissions: permissions,
	}
}

func newTestUser(hash string, roles ...auth.Role) *auth.User {
	return &auth.User{
		ID:           "user-1",
		PersonID:     "person-1",
		UserName:     "alice",
		Email:        "alice@projectbase.uz",
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}
