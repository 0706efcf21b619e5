package auth

import (
	"bufio"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// PasswordFile is an Authenticator backed by a line-oriented
// "username:SHA256-hex(password)" file, '#'-prefixed comments, loaded
// once at startup.
type PasswordFile struct {
	mu        sync.RWMutex
	passwords map[string]string // username -> lowercase hex sha256
}

var _ Authenticator = (*PasswordFile)(nil)

// LoadPasswordFile parses path into a PasswordFile.
func LoadPasswordFile(path string) (*PasswordFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("auth: open password file: %w", err)
	}
	defer f.Close()

	pf, err := parsePasswordFile(f)
	if err != nil {
		return nil, fmt.Errorf("auth: parse %s: %w", path, err)
	}
	return pf, nil
}

func parsePasswordFile(r io.Reader) (*PasswordFile, error) {
	pf := &PasswordFile{passwords: make(map[string]string)}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		username, hash, ok := strings.Cut(text, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: expected username:hash", line)
		}
		pf.passwords[username] = strings.ToLower(hash)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return pf, nil
}

// CheckValid hashes password with SHA-256 and compares against the stored
// hex digest for username in constant time. clientID is accepted to
// satisfy the Authenticator interface but is not part of this policy.
func (pf *PasswordFile) CheckValid(clientID, username string, password []byte) bool {
	pf.mu.RLock()
	want, ok := pf.passwords[username]
	pf.mu.RUnlock()
	if !ok {
		return false
	}

	sum := sha256.Sum256(password)
	got := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
