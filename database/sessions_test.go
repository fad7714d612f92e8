package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/Krish-Depani/order-session-api/database"
	"github.com/Krish-Depani/order-session-api/database/dbtest"
	"github.com/Krish-Depani/order-session-api/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCache(t *testing.T) (*database.RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := database.NewRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func newSession(userID uuid.UUID, access, refresh string) *models.UserSession {
	now := time.Now()
	return &models.UserSession{
		UserID:                userID,
		Role:                  models.RoleUser,
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  now.Add(time.Hour),
		RefreshTokenExpiresAt: now.Add(24 * time.Hour),
		LoginAt:               now,
		IPAddress:             "10.0.0.1",
		UserAgent:             "go-test",
		IsActive:              true,
	}
}

func countSessions(t *testing.T, db *gorm.DB, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.UserSession{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func TestSessionStore_ReplaceKeepsSingleSession(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	cache, _ := newCache(t)
	store := database.NewSessionStore(db, cache, time.Hour)
	userID := uuid.New()

	first := newSession(userID, "access-1", "refresh-1")
	require.NoError(t, store.Replace(ctx, first))
	second := newSession(userID, "access-2", "refresh-2")
	require.NoError(t, store.Replace(ctx, second))

	assert.Equal(t, int64(1), countSessions(t, db, userID))
	assert.Equal(t, first.ID, second.ID)

	_, err := store.LookupActive(ctx, "access-1")
	assert.ErrorIs(t, err, database.ErrNoSession)

	got, err := store.LookupActive(ctx, "access-2")
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)

	_, err = store.FindActiveByRefreshToken(ctx, "refresh-1")
	assert.ErrorIs(t, err, database.ErrNoSession)
	_, err = store.FindActiveByRefreshToken(ctx, "refresh-2")
	assert.NoError(t, err)
}

func TestSessionStore_ReplaceReactivatesLoggedOutUser(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	store := database.NewSessionStore(db, nil, time.Hour)
	userID := uuid.New()

	require.NoError(t, store.Replace(ctx, newSession(userID, "access-1", "refresh-1")))
	_, err := store.Deactivate(ctx, "access-1")
	require.NoError(t, err)

	require.NoError(t, store.Replace(ctx, newSession(userID, "access-2", "refresh-2")))

	session, err := store.FindActiveByAccessToken(ctx, "access-2")
	require.NoError(t, err)
	assert.True(t, session.IsActive)
	assert.Nil(t, session.LogoutAt)
}

func TestSessionStore_LookupActiveUsesCache(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	cache, mr := newCache(t)
	store := database.NewSessionStore(db, cache, time.Hour)
	userID := uuid.New()

	session := newSession(userID, "access-1", "refresh-1")
	require.NoError(t, store.Replace(ctx, session))
	assert.Len(t, mr.Keys(), 1)

	// Remove the row behind the store's back; the cached entry still answers.
	require.NoError(t, db.Where("id = ?", session.ID).Delete(&models.UserSession{}).Error)
	got, err := store.LookupActive(ctx, "access-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.SessionID)
	assert.Equal(t, "User", got.Role)

	mr.FlushAll()
	_, err = store.LookupActive(ctx, "access-1")
	assert.ErrorIs(t, err, database.ErrNoSession)
}

func TestSessionStore_LookupActiveRepopulatesCache(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	cache, mr := newCache(t)
	store := database.NewSessionStore(db, cache, time.Hour)

	require.NoError(t, store.Replace(ctx, newSession(uuid.New(), "access-1", "refresh-1")))
	mr.FlushAll()

	_, err := store.LookupActive(ctx, "access-1")
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 1)
}

func TestSessionStore_DeactivateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	cache, mr := newCache(t)
	store := database.NewSessionStore(db, cache, time.Hour)
	userID := uuid.New()

	require.NoError(t, store.Replace(ctx, newSession(userID, "access-1", "refresh-1")))

	found, err := store.Deactivate(ctx, "access-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, mr.Keys(), 1)
	_, err = cache.GetSession(ctx, "access-1")
	assert.ErrorIs(t, err, database.ErrSessionRevoked)

	found, err = store.Deactivate(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = store.Deactivate(ctx, "never-issued")
	require.NoError(t, err)
	assert.False(t, found)

	sessions, err := store.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.False(t, sessions[0].IsActive)
	assert.NotNil(t, sessions[0].LogoutAt)

	_, err = store.LookupActive(ctx, "access-1")
	assert.ErrorIs(t, err, database.ErrNoSession)
}

func TestSessionStore_UpdateAccessToken(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	cache, _ := newCache(t)
	store := database.NewSessionStore(db, cache, time.Hour)
	userID := uuid.New()

	require.NoError(t, store.Replace(ctx, newSession(userID, "access-1", "refresh-1")))
	session, err := store.FindActiveByRefreshToken(ctx, "refresh-1")
	require.NoError(t, err)

	expiresAt := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	require.NoError(t, store.UpdateAccessToken(ctx, session, "access-2", expiresAt))

	_, err = store.LookupActive(ctx, "access-1")
	assert.ErrorIs(t, err, database.ErrNoSession)

	got, err := store.FindActiveByAccessToken(ctx, "access-2")
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", got.RefreshToken)
	assert.True(t, got.AccessTokenExpiresAt.Equal(expiresAt))
}

func TestSessionStore_UpdateAccessTokenAfterLogout(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	store := database.NewSessionStore(db, nil, time.Hour)

	require.NoError(t, store.Replace(ctx, newSession(uuid.New(), "access-1", "refresh-1")))
	session, err := store.FindActiveByRefreshToken(ctx, "refresh-1")
	require.NoError(t, err)

	_, err = store.Deactivate(ctx, "access-1")
	require.NoError(t, err)

	err = store.UpdateAccessToken(ctx, session, "access-2", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, database.ErrNoSession)
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	store := database.NewSessionStore(db, nil, time.Hour)

	live := newSession(uuid.New(), "access-live", "refresh-live")
	expired := newSession(uuid.New(), "access-old", "refresh-old")
	expired.RefreshTokenExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Replace(ctx, live))
	require.NoError(t, store.Replace(ctx, expired))

	deleted, err := store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	assert.Equal(t, int64(0), countSessions(t, db, expired.UserID))
	assert.Equal(t, int64(1), countSessions(t, db, live.UserID))

	deleted, err = store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestSessionReaper(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	store := database.NewSessionStore(db, nil, time.Hour)

	expired := newSession(uuid.New(), "access-old", "refresh-old")
	expired.RefreshTokenExpiresAt = time.Now().Add(-time.Second)
	require.NoError(t, store.Replace(ctx, expired))

	reaper := database.StartSessionReaper(ctx, store, 10*time.Millisecond)
	defer reaper.Stop()

	require.Eventually(t, func() bool {
		return countSessions(t, db, expired.UserID) == 0
	}, time.Second, 10*time.Millisecond)
}

// gatedCache parks SetSession for one token until release is closed.
type gatedCache struct {
	database.SessionCache
	token   string
	entered chan struct{}
	release chan struct{}
}

func newGatedCache(inner database.SessionCache, token string) *gatedCache {
	return &gatedCache{
		SessionCache: inner,
		token:        token,
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
}

func (g *gatedCache) SetSession(ctx context.Context, accessToken string, session database.CachedSession, ttl time.Duration) error {
	if accessToken == g.token {
		close(g.entered)
		<-g.release
	}
	return g.SessionCache.SetSession(ctx, accessToken, session, ttl)
}

func TestSessionStore_LogoutDuringCacheFill(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	inner, mr := newCache(t)

	require.NoError(t, database.NewSessionStore(db, nil, time.Hour).Replace(ctx, newSession(uuid.New(), "access-1", "refresh-1")))
	mr.FlushAll()

	gate := newGatedCache(inner, "access-1")
	store := database.NewSessionStore(db, gate, time.Hour)

	done := make(chan error, 1)
	go func() {
		_, err := store.LookupActive(ctx, "access-1")
		done <- err
	}()

	<-gate.entered
	found, err := store.Deactivate(ctx, "access-1")
	require.NoError(t, err)
	assert.True(t, found)
	close(gate.release)
	require.NoError(t, <-done)

	_, err = store.LookupActive(ctx, "access-1")
	assert.ErrorIs(t, err, database.ErrNoSession)
	_, err = inner.GetSession(ctx, "access-1")
	assert.ErrorIs(t, err, database.ErrSessionRevoked)
}

func TestSessionStore_SupersededDuringCacheFill(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	inner, _ := newCache(t)
	gate := newGatedCache(inner, "access-1")
	store := database.NewSessionStore(db, gate, time.Hour)
	userID := uuid.New()

	done := make(chan error, 1)
	go func() {
		done <- store.Replace(ctx, newSession(userID, "access-1", "refresh-1"))
	}()

	<-gate.entered
	require.NoError(t, store.Replace(ctx, newSession(userID, "access-2", "refresh-2")))
	close(gate.release)
	require.NoError(t, <-done)

	_, err := store.LookupActive(ctx, "access-1")
	assert.ErrorIs(t, err, database.ErrNoSession)
	got, err := store.LookupActive(ctx, "access-2")
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
}

func TestSessionStore_DeactivateUser(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	cache, _ := newCache(t)
	store := database.NewSessionStore(db, cache, time.Hour)
	userID := uuid.New()
	other := uuid.New()

	require.NoError(t, store.Replace(ctx, newSession(userID, "access-1", "refresh-1")))
	require.NoError(t, store.Replace(ctx, newSession(other, "access-2", "refresh-2")))

	ended, err := store.DeactivateUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ended)

	_, err = store.LookupActive(ctx, "access-1")
	assert.ErrorIs(t, err, database.ErrNoSession)
	_, err = store.FindActiveByRefreshToken(ctx, "refresh-1")
	assert.ErrorIs(t, err, database.ErrNoSession)
	_, err = store.LookupActive(ctx, "access-2")
	assert.NoError(t, err)

	ended, err = store.DeactivateUser(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, ended)
}
