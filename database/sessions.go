package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Krish-Depani/order-session-api/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoSession = errors.New("session not found")

// replaceColumns are overwritten when a login replaces a user's prior session.
var replaceColumns = []string{
	"role", "access_token", "refresh_token",
	"access_token_expires_at", "refresh_token_expires_at",
	"login_at", "logout_at", "ip_address", "user_agent", "is_active",
	"created_at", "updated_at",
}

// SessionStore persists login sessions in the database and mirrors the live
// ones into an optional SessionCache.
type SessionStore struct {
	db        *gorm.DB
	cache     SessionCache
	revokeTTL time.Duration
	now       func() time.Time
}

// NewSessionStore returns a store backed by db. cache may be nil. accessTTL
// is the access token lifetime and bounds how long a revoked token is
// remembered by the cache.
func NewSessionStore(db *gorm.DB, cache SessionCache, accessTTL time.Duration) *SessionStore {
	return &SessionStore{db: db, cache: cache, revokeTTL: accessTTL, now: time.Now}
}

// Replace installs session as the only session of session.UserID. The prior
// row, if any, is overwritten in place by an upsert keyed on user_id, so two
// concurrent logins can never leave two sessions behind. Logins of the same
// user are serialized on the user row so each one sees the token it
// supersedes.
func (s *SessionStore) Replace(ctx context.Context, session *models.UserSession) error {
	var evicted string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner []models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").Where("id = ?", session.UserID).Find(&owner).Error; err != nil {
			return err
		}

		var prior models.UserSession
		err := tx.Select("id", "access_token").Where("user_id = ?", session.UserID).Take(&prior).Error
		switch {
		case err == nil:
			session.ID = prior.ID
			evicted = prior.AccessToken
		case errors.Is(err, gorm.ErrRecordNotFound):
			if session.ID == uuid.Nil {
				session.ID = uuid.New()
			}
		default:
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(replaceColumns),
		}).Create(session).Error
	})
	if err != nil {
		return fmt.Errorf("replace session: %w", err)
	}

	if evicted != "" && evicted != session.AccessToken {
		s.evict(ctx, evicted)
	}
	s.remember(ctx, session)
	return nil
}

// LookupActive resolves an access token to its live session, consulting the
// cache before the database.
func (s *SessionStore) LookupActive(ctx context.Context, accessToken string) (*CachedSession, error) {
	if s.cache != nil {
		cached, err := s.cache.GetSession(ctx, accessToken)
		if errors.Is(err, ErrSessionRevoked) {
			return nil, ErrNoSession
		}
		if err != nil {
			log.Warn().Err(err).Msg("Session cache read failed, falling back to database")
		} else if cached != nil {
			return cached, nil
		}
	}

	session, err := s.FindActiveByAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, session)

	return &CachedSession{SessionID: session.ID, UserID: session.UserID, Role: string(session.Role)}, nil
}

func (s *SessionStore) FindActiveByAccessToken(ctx context.Context, accessToken string) (*models.UserSession, error) {
	return s.findActive(ctx, "access_token = ?", accessToken)
}

func (s *SessionStore) FindActiveByRefreshToken(ctx context.Context, refreshToken string) (*models.UserSession, error) {
	return s.findActive(ctx, "refresh_token = ?", refreshToken)
}

func (s *SessionStore) findActive(ctx context.Context, query string, token string) (*models.UserSession, error) {
	var session models.UserSession
	err := s.db.WithContext(ctx).
		Where(query, token).
		Where("is_active = ?", true).
		Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// Deactivate ends the session holding accessToken. It reports whether an
// active session was found; ending an already ended session is not an error.
func (s *SessionStore) Deactivate(ctx context.Context, accessToken string) (bool, error) {
	now := s.now()
	result := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("access_token = ? AND is_active = ?", accessToken, true).
		Updates(map[string]interface{}{
			"is_active": false,
			"logout_at": now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("deactivate session: %w", result.Error)
	}

	s.evict(ctx, accessToken)
	return result.RowsAffected > 0, nil
}

// DeactivateUser ends every active session of userID.
func (s *SessionStore) DeactivateUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var active []models.UserSession
	if err := s.db.WithContext(ctx).
		Select("id", "access_token").
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&active).Error; err != nil {
		return 0, fmt.Errorf("find user sessions: %w", err)
	}
	if len(active) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, len(active))
	tokens := make([]string, len(active))
	for i, session := range active {
		ids[i] = session.ID
		tokens[i] = session.AccessToken
	}

	result := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Updates(map[string]interface{}{
			"is_active": false,
			"logout_at": s.now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("deactivate user sessions: %w", result.Error)
	}

	s.evict(ctx, tokens...)
	return result.RowsAffected, nil
}

// UpdateAccessToken swaps the access token of an active session in place.
func (s *SessionStore) UpdateAccessToken(ctx context.Context, session *models.UserSession, accessToken string, expiresAt time.Time) error {
	previous := session.AccessToken
	result := s.db.WithContext(ctx).Model(&models.UserSession{}).
		Where("id = ? AND refresh_token = ? AND is_active = ?", session.ID, session.RefreshToken, true).
		Updates(map[string]interface{}{
			"access_token":            accessToken,
			"access_token_expires_at": expiresAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update access token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNoSession
	}

	session.AccessToken = accessToken
	session.AccessTokenExpiresAt = expiresAt
	s.evict(ctx, previous)
	s.remember(ctx, session)
	return nil
}

// ListByUser returns every stored session of userID, newest login first.
func (s *SessionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserSession, error) {
	var sessions []models.UserSession
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("login_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// DeleteExpired removes sessions whose refresh token expired before now.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var expired []models.UserSession
	if err := s.db.WithContext(ctx).
		Select("id", "access_token").
		Where("refresh_token_expires_at <= ?", now).
		Find(&expired).Error; err != nil {
		return 0, fmt.Errorf("find expired sessions: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, len(expired))
	tokens := make([]string, len(expired))
	for i, session := range expired {
		ids[i] = session.ID
		tokens[i] = session.AccessToken
	}

	result := s.db.WithContext(ctx).
		Where("id IN ? AND refresh_token_expires_at <= ?", ids, now).
		Delete(&models.UserSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", result.Error)
	}

	s.evict(ctx, tokens...)
	return result.RowsAffected, nil
}

func (s *SessionStore) remember(ctx context.Context, session *models.UserSession) {
	if s.cache == nil || !session.IsActive {
		return
	}
	ttl := session.AccessTokenExpiresAt.Sub(s.now())
	err := s.cache.SetSession(ctx, session.AccessToken, CachedSession{
		SessionID: session.ID,
		UserID:    session.UserID,
		Role:      string(session.Role),
	}, ttl)
	if err != nil {
		log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Failed to cache session")
	}
}

// evict marks accessTokens revoked in the cache. A fill racing with it
// cannot resurrect the token since SetSession does not overwrite.
func (s *SessionStore) evict(ctx context.Context, accessTokens ...string) {
	if s.cache == nil || len(accessTokens) == 0 {
		return
	}
	if err := s.cache.RevokeSession(ctx, s.revokeTTL, accessTokens...); err != nil {
		log.Warn().Err(err).Int("count", len(accessTokens)).Msg("Failed to evict cached sessions")
	}
}
