package auth

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrAuthFailed means no record matches the exact username:password pair.
	ErrAuthFailed = errors.New("auth: bad credentials")
	// ErrUserExists means the username is already registered.
	ErrUserExists = errors.New("auth: username already registered")
	// ErrInvalidCredential means a field contains the record separator.
	ErrInvalidCredential = errors.New("auth: credential contains ':'")
)

// Store keeps credentials as username:password lines in a flat file.
// All file I/O runs fully under the store mutex; both operations reread the
// file so concurrent server instances at least never corrupt records.
type Store struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

func NewStore(path string, log *zap.Logger) *Store {
	return &Store{path: path, log: log}
}

// Register appends a new record. Fields may not contain ':' and the
// username must be unused.
func (s *Store) Register(username, password string) error {
	if strings.ContainsRune(username, ':') || strings.ContainsRune(password, ':') {
		return ErrInvalidCredential
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	taken, err := s.usernameTaken(username)
	if err != nil {
		return err
	}
	if taken {
		return ErrUserExists
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s:%s\n", username, password); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	s.log.Info("帳號註冊成功", zap.String("username", username))
	return nil
}

// Login succeeds iff the exact username:password line exists.
func (s *Store) Login(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrAuthFailed
		}
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	record := username + ":" + password
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if sc.Text() == record {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", s.path, err)
	}
	return ErrAuthFailed
}

// usernameTaken scans for an existing record with the same username.
// Caller holds the mutex.
func (s *Store) usernameTaken(username string) (bool, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if name, _, ok := strings.Cut(line, ":"); ok && name == username {
			return true, nil
		}
	}
	return false, sc.Err()
}
