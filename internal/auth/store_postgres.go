// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/projectbase/idm/internal/platform/dberr"
	"github.com/projectbase/idm/internal/platform/sec"
)

// # Storage Layer
//
// Repositories here implement the domain-defined interfaces ([SessionStore],
// [UserStore]) using the pgx connection manager. Storage-specific errors
// (pgx.ErrNoRows) are mapped to [dberr.ErrNotFound] so callers never see
// driver details.

// dbConn is the subset of pgx operations shared by *pgxpool.Pool and pgx.Tx.
// The session store runs against either, which is what makes
// [SessionStore.InTx] possible without duplicating query code.
type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// # Session Repository

// PostgresSessionStore implements [SessionStore] against auth.session and
// auth.device.
type PostgresSessionStore struct {
	db   dbConn
	pool *pgxpool.Pool

	// inTx marks a transactional view; lookups by user then lock the row.
	inTx bool
}

// NewSessionStore creates the PostgreSQL implementation of [SessionStore].
func NewSessionStore(pool *pgxpool.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{db: pool, pool: pool}
}

// sessionColumns is the canonical SELECT list, joined with the 1:1 device row.
const sessionColumns = `
	s.id, s.userid, s.accesstokenid, s.accesstokenexpiresat,
	s.refreshtokenid, s.refreshtokenexpiresat, s.status, s.createdat, s.updatedat,
	d.id, d.ipaddress, d.devicetype, d.devicemodel, d.osname, d.osversion,
	d.browsername, d.browserversion, d.useragent, d.isbot, d.ismobile,
	d.istablet, d.isdesktop, d.istrusted, d.location, d.countrycode,
	d.nickname, d.lastactivityat, d.logincount, d.createdat`

/*
FindByUserID returns the user's single non-deleted session.

Inside a transaction the row is read FOR UPDATE: concurrent rotations for the
same user serialize on this lock instead of overwriting each other's
generation markers.
*/
func (store *PostgresSessionStore) FindByUserID(ctx context.Context, userID string) (*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM auth.session s
		JOIN auth.device d ON d.sessionid = s.id
		WHERE s.userid = $1 AND s.status = 'active'`
	if store.inTx {
		query += `
		FOR UPDATE OF s`
	}

	return store.scanSession(store.db.QueryRow(ctx, query, userID))
}

// FindByAccessTokenID returns the session correlated to an access-token
// generation id, deleted rows included.
func (store *PostgresSessionStore) FindByAccessTokenID(ctx context.Context, accessTokenID string) (*Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM auth.session s
		JOIN auth.device d ON d.sessionid = s.id
		WHERE s.accesstokenid = $1`

	return store.scanSession(store.db.QueryRow(ctx, query, accessTokenID))
}

// FindByRefreshTokenID returns the session correlated to a refresh-token
// generation id, deleted rows included.
func (store *PostgresSessionStore) FindByRefreshTokenID(ctx context.Context, refreshTokenID string) (*Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM auth.session s
		JOIN auth.device d ON d.sessionid = s.id
		WHERE s.refreshtokenid = $1`

	return store.scanSession(store.db.QueryRow(ctx, query, refreshTokenID))
}

/*
Insert persists a new session and its device record.

Description: Two inserts, session first for the foreign key. Callers that
need atomicity with other writes run this inside [PostgresSessionStore.InTx].
*/
func (store *PostgresSessionStore) Insert(ctx context.Context, session *Session) error {
	const sessionQuery = `
		INSERT INTO auth.session (
			id, userid, accesstokenid, accesstokenexpiresat,
			refreshtokenid, refreshtokenexpiresat, status, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	_, err := store.db.Exec(ctx, sessionQuery,
		session.ID,
		session.UserID,
		session.AccessTokenID,
		session.AccessTokenExpiresAt,
		session.RefreshTokenID,
		session.RefreshTokenExpiresAt,
		session.Status,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_session_insert_failed: %w", err)
	}

	if session.Device == nil {
		return fmt.Errorf("postgres_session_insert_failed: session has no device record")
	}

	const deviceQuery = `
		INSERT INTO auth.device (
			id, sessionid, ipaddress, devicetype, devicemodel, osname, osversion,
			browsername, browserversion, useragent, isbot, ismobile, istablet,
			isdesktop, istrusted, location, countrycode, nickname,
			lastactivityat, logincount, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21)`

	device := session.Device
	device.SessionID = session.ID
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}

	_, err = store.db.Exec(ctx, deviceQuery,
		device.ID,
		device.SessionID,
		device.IPAddress,
		device.DeviceType,
		device.DeviceModel,
		device.OSName,
		device.OSVersion,
		device.BrowserName,
		device.BrowserVersion,
		device.UserAgent,
		device.IsBot,
		device.IsMobile,
		device.IsTablet,
		device.IsDesktop,
		device.IsTrusted,
		device.Location,
		device.CountryCode,
		device.Nickname,
		device.LastActivityAt,
		device.LoginCount,
		device.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_device_insert_failed: %w", err)
	}

	return nil
}

/*
Update persists the rotation-mutable fields: generation markers, expiries,
status, and the device activity counters.
*/
func (store *PostgresSessionStore) Update(ctx context.Context, session *Session) error {
	const sessionQuery = `
		UPDATE auth.session SET
			accesstokenid = $2, accesstokenexpiresat = $3,
			refreshtokenid = $4, refreshtokenexpiresat = $5,
			status = $6, updatedat = $7
		WHERE id = $1`

	session.UpdatedAt = time.Now()

	tag, err := store.db.Exec(ctx, sessionQuery,
		session.ID,
		session.AccessTokenID,
		session.AccessTokenExpiresAt,
		session.RefreshTokenID,
		session.RefreshTokenExpiresAt,
		session.Status,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_session_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	if session.Device == nil {
		return nil
	}

	const deviceQuery = `
		UPDATE auth.device SET
			ipaddress = $2, location = $3, countrycode = $4, istrusted = $5,
			nickname = $6, lastactivityat = $7, logincount = $8
		WHERE id = $1`

	device := session.Device
	_, err = store.db.Exec(ctx, deviceQuery,
		device.ID,
		device.IPAddress,
		device.Location,
		device.CountryCode,
		device.IsTrusted,
		device.Nickname,
		device.LastActivityAt,
		device.LoginCount,
	)
	if err != nil {
		return fmt.Errorf("postgres_device_update_failed: %w", err)
	}

	return nil
}

// Delete revokes a session by flipping its status. The row survives so that
// liveness checks keep failing for its tokens.
func (store *PostgresSessionStore) Delete(ctx context.Context, sessionID string) error {
	const query = `
		UPDATE auth.session SET status = 'deleted', updatedat = $2
		WHERE id = $1 AND status != 'deleted'`

	tag, err := store.db.Exec(ctx, query, sessionID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_session_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	return nil
}

/*
InTx runs fn against a transactional session store.

Description: Opens a pgx transaction, hands fn a store whose reads lock rows
(FOR UPDATE), and commits iff fn returns nil. Any error rolls everything back.
*/
func (store *PostgresSessionStore) InTx(ctx context.Context, fn func(tx SessionStore) error) error {
	transaction, err := store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres_session_tx_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(ctx) }()

	txStore := &PostgresSessionStore{db: transaction, pool: store.pool, inTx: true}
	if err := fn(txStore); err != nil {
		return err
	}

	if err := transaction.Commit(ctx); err != nil {
		return fmt.Errorf("postgres_session_tx_commit_failed: %w", err)
	}

	return nil
}

// scanSession hydrates a [Session] and its [DeviceRecord] from the canonical
// column list.
func (store *PostgresSessionStore) scanSession(row pgx.Row) (*Session, error) {
	session := &Session{Device: &DeviceRecord{}}
	device := session.Device

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.AccessTokenID,
		&session.AccessTokenExpiresAt,
		&session.RefreshTokenID,
		&session.RefreshTokenExpiresAt,
		&session.Status,
		&session.CreatedAt,
		&session.UpdatedAt,
		&device.ID,
		&device.IPAddress,
		&device.DeviceType,
		&device.DeviceModel,
		&device.OSName,
		&device.OSVersion,
		&device.BrowserName,
		&device.BrowserVersion,
		&device.UserAgent,
		&device.IsBot,
		&device.IsMobile,
		&device.IsTablet,
		&device.IsDesktop,
		&device.IsTrusted,
		&device.Location,
		&device.CountryCode,
		&device.Nickname,
		&device.LastActivityAt,
		&device.LoginCount,
		&device.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, dberr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres_session_scan_failed: %w", err)
	}

	device.SessionID = session.ID
	return session, nil
}

// # User Repository

// PostgresUserStore implements [UserStore] against auth.account. Both lookups
// hydrate the full role and permission graph.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates the PostgreSQL implementation of [UserStore].
func NewUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

/*
FindByUsername retrieves an account by username, case-insensitively.

Returns:
  - *User: Hydrated account with roles and permissions
  - error: dberr.ErrNotFound or database errors
*/
func (store *PostgresUserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	const query = `
		SELECT id, personid, username, email, isemailconfirmed, passwordhash, createdat, updatedat
		FROM auth.account
		WHERE LOWER(username) = LOWER($1)`

	return store.findOne(ctx, query, username)
}

// FindByID retrieves an account by primary key, roles hydrated.
func (store *PostgresUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	const query = `
		SELECT id, personid, username, email, isemailconfirmed, passwordhash, createdat, updatedat
		FROM auth.account
		WHERE id = $1`

	return store.findOne(ctx, query, id)
}

// findOne runs a single-row account query and hydrates the role graph.
func (store *PostgresUserStore) findOne(ctx context.Context, query string, arg any) (*User, error) {
	user := &User{}
	err := store.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.PersonID,
		&user.UserName,
		&user.Email,
		&user.IsEmailConfirmed,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "find_account")
	}

	if err := store.loadRoles(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// loadRoles hydrates the account's roles and each role's permissions.
func (store *PostgresUserStore) loadRoles(ctx context.Context, user *User) error {
	const roleQuery = `
		SELECT r.id, r.name, r.description, r.isdefault, r.issystemrole, r.issystemadmin
		FROM auth.role r
		JOIN auth.user_role ur ON ur.roleid = r.id
		WHERE ur.userid = $1
		ORDER BY r.name`

	rows, err := store.pool.Query(ctx, roleQuery, user.ID)
	if err != nil {
		return fmt.Errorf("postgres_user_roles_query_failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role Role
		var isSystemRole, isSystemAdmin bool

		err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsDefault,
			&isSystemRole, &isSystemAdmin)
		if err != nil {
			return fmt.Errorf("postgres_user_roles_scan_failed: %w", err)
		}

		role.Tier = TierFromFlags(isSystemRole, isSystemAdmin)
		user.Roles = append(user.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres_user_roles_rows_failed: %w", err)
	}

	for i := range user.Roles {
		if err := store.loadPermissions(ctx, &user.Roles[i]); err != nil {
			return err
		}
	}

	return nil
}

// loadPermissions hydrates one role's permission set.
func (store *PostgresUserStore) loadPermissions(ctx context.Context, role *Role) error {
	const query = `
		SELECT p.id, p.name, p.description
		FROM auth.permission p
		JOIN auth.role_permission rp ON rp.permissionid = p.id
		WHERE rp.roleid = $1
		ORDER BY p.name`

	rows, err := store.pool.Query(ctx, query, role.ID)
	if err != nil {
		return fmt.Errorf("postgres_role_permissions_query_failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var permission Permission
		var name string

		if err := rows.Scan(&permission.ID, &name, &permission.Description); err != nil {
			return fmt.Errorf("postgres_role_permissions_scan_failed: %w", err)
		}

		permission.Name = sec.PermissionKey(name)
		role.Permissions = append(role.Permissions, permission)
	}

	return rows.Err()
}
