package auth

import (
	"context"
	"encoding/json"
	"fmt"
)

// StorageKeys names the storage entries a session is spread over.
type StorageKeys struct {
	Token       string
	User        string
	LegacyToken string
	BackupToken string
	BackupUser  string
}

// DefaultStorageKeys are the keys the web client has always used
var DefaultStorageKeys = StorageKeys{
	Token:       "imc_token",
	User:        "user",
	LegacyToken: "access_token",
	BackupToken: "imc_parent_token",
	BackupUser:  "imc_parent_user",
}

// StorageSessions implements SessionRepository on top of a Storage.
type StorageSessions struct {
	storage Storage
	keys    StorageKeys
	logger  Logger
}

var _ SessionRepository = (*StorageSessions)(nil)

// StorageSessionsOption configures StorageSessions
type StorageSessionsOption func(*StorageSessions)

// WithStorageKeys overrides the storage keys
func WithStorageKeys(keys StorageKeys) StorageSessionsOption {
	return func(s *StorageSessions) {
		s.keys = keys
	}
}

// WithSessionLogger sets the logger
func WithSessionLogger(logger Logger) StorageSessionsOption {
	return func(s *StorageSessions) {
		s.logger = logger
	}
}

// NewStorageSessions creates a repository over the given storage
func NewStorageSessions(storage Storage, opts ...StorageSessionsOption) *StorageSessions {
	s := &StorageSessions{
		storage: storage,
		keys:    DefaultStorageKeys,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = normalizeLogger(s.logger)
	return s
}

// Storage returns the underlying store
func (s *StorageSessions) Storage() Storage {
	return s.storage
}

// Get returns the live session. A stored profile without a token is not a
// session, it is ignored.
func (s *StorageSessions) Get(ctx context.Context) (Session, error) {
	return s.read(ctx, s.keys.Token, s.keys.User)
}

// Set replaces the live session. Setting an empty session clears it.
func (s *StorageSessions) Set(ctx context.Context, session Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	if session.IsZero() {
		return s.Clear(ctx)
	}

	var rawUser string
	if session.User != nil {
		data, err := json.Marshal(session.User)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}
		rawUser = string(data)
	}

	return s.writeRaw(ctx, s.keys.Token, s.keys.User, session.Token, rawUser, session.User != nil)
}

// Clear removes the live session. The backup slot is left alone.
func (s *StorageSessions) Clear(ctx context.Context) error {
	for _, key := range []string{s.keys.Token, s.keys.LegacyToken, s.keys.User} {
		if key == "" {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}

// SaveBackup copies the live session into the backup slot as stored,
// without decoding it. Only one backup can exist.
func (s *StorageSessions) SaveBackup(ctx context.Context) error {
	exists, err := s.HasBackup(ctx)
	if err != nil {
		return err
	}
	if exists {
		return ErrBackupExists
	}

	token, ok, err := s.storage.Get(ctx, s.keys.Token)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.keys.Token, err)
	}
	if !ok || token == "" {
		return ErrNoSession
	}

	user, hasUser, err := s.storage.Get(ctx, s.keys.User)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.keys.User, err)
	}

	// user first: a token in the backup slot is what marks it as present
	if hasUser {
		if err := s.storage.Set(ctx, s.keys.BackupUser, user); err != nil {
			return fmt.Errorf("write %s: %w", s.keys.BackupUser, err)
		}
	} else if err := s.storage.Delete(ctx, s.keys.BackupUser); err != nil {
		return fmt.Errorf("clear %s: %w", s.keys.BackupUser, err)
	}

	if err := s.storage.Set(ctx, s.keys.BackupToken, token); err != nil {
		return fmt.Errorf("write %s: %w", s.keys.BackupToken, err)
	}

	return nil
}

// RestoreBackup puts the backup back in place and removes the slot.
func (s *StorageSessions) RestoreBackup(ctx context.Context) error {
	token, ok, err := s.storage.Get(ctx, s.keys.BackupToken)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.keys.BackupToken, err)
	}
	if !ok || token == "" {
		return ErrNoBackup
	}

	user, hasUser, err := s.storage.Get(ctx, s.keys.BackupUser)
	if err != nil {
		return fmt.Errorf("read %s: %w", s.keys.BackupUser, err)
	}

	if err := s.writeRaw(ctx, s.keys.Token, s.keys.User, token, user, hasUser); err != nil {
		return err
	}

	for _, key := range []string{s.keys.BackupUser, s.keys.BackupToken} {
		if err := s.storage.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}

// DiscardBackup drops the backup slot. The token goes first so a half
// removed slot no longer counts as a backup.
func (s *StorageSessions) DiscardBackup(ctx context.Context) error {
	for _, key := range []string{s.keys.BackupToken, s.keys.BackupUser} {
		if err := s.storage.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}

// HasBackup reports whether a parent session is waiting to be restored
func (s *StorageSessions) HasBackup(ctx context.Context) (bool, error) {
	token, ok, err := s.storage.Get(ctx, s.keys.BackupToken)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", s.keys.BackupToken, err)
	}
	return ok && token != "", nil
}

// BackupSession decodes the backup slot
func (s *StorageSessions) BackupSession(ctx context.Context) (Session, bool, error) {
	session, err := s.read(ctx, s.keys.BackupToken, s.keys.BackupUser)
	if err != nil {
		return Session{}, false, err
	}
	return session, !session.IsZero(), nil
}

func (s *StorageSessions) read(ctx context.Context, tokenKey, userKey string) (Session, error) {
	token, _, err := s.storage.Get(ctx, tokenKey)
	if err != nil {
		return Session{}, fmt.Errorf("read %s: %w", tokenKey, err)
	}

	rawUser, hasUser, err := s.storage.Get(ctx, userKey)
	if err != nil {
		return Session{}, fmt.Errorf("read %s: %w", userKey, err)
	}

	if token == "" {
		if hasUser && rawUser != "" {
			s.logger.Debug("ignoring stored profile without token: key=%s", userKey)
		}
		return Session{}, nil
	}

	session := Session{Token: token}
	if !hasUser || rawUser == "" || rawUser == "null" {
		return session, nil
	}

	profile := &Profile{}
	if err := json.Unmarshal([]byte(rawUser), profile); err != nil {
		s.logger.Error("stored profile is not valid json: key=%s err=%v", userKey, err)
		return session, nil
	}
	session.User = profile
	return session, nil
}

func (s *StorageSessions) writeRaw(ctx context.Context, tokenKey, userKey, token, user string, hasUser bool) error {
	if hasUser {
		if err := s.storage.Set(ctx, userKey, user); err != nil {
			return fmt.Errorf("write %s: %w", userKey, err)
		}
	} else if err := s.storage.Delete(ctx, userKey); err != nil {
		return fmt.Errorf("clear %s: %w", userKey, err)
	}

	if err := s.storage.Set(ctx, tokenKey, token); err != nil {
		return fmt.Errorf("write %s: %w", tokenKey, err)
	}

	if tokenKey == s.keys.Token && s.keys.LegacyToken != "" {
		if err := s.storage.Set(ctx, s.keys.LegacyToken, token); err != nil {
			return fmt.Errorf("write %s: %w", s.keys.LegacyToken, err)
		}
	}
	return nil
}
