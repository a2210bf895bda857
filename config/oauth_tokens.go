package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	transport "github.com/mark3labs/mcp-go/client/transport"
)

// FileTokenStore persists OAuth tokens for remote tool servers, honoring the
// configured security method (plain JSON or SSH-key encrypted).
type FileTokenStore struct {
	pluginID string
	dataDir  string
	security SecurityMethod
	encMgr   *EncryptionManager
	mu       sync.RWMutex
}

func NewFileTokenStore(pluginID string, dataDir string, security SecurityMethod, encMgr *EncryptionManager) *FileTokenStore {
	return &FileTokenStore{
		pluginID: pluginID,
		dataDir:  dataDir,
		security: security,
		encMgr:   encMgr,
	}
}

// GetToken loads the token from disk.
func (s *FileTokenStore) GetToken(ctx context.Context) (*transport.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.tokenPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, transport.ErrNoToken
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat token file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	data, err = s.open(data)
	if err != nil {
		return nil, err
	}

	var token transport.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

// SaveToken writes the token to disk.
func (s *FileTokenStore) SaveToken(ctx context.Context, token *transport.Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	data, err = s.seal(data)
	if err != nil {
		return err
	}

	path := s.tokenPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// seal applies the configured security method to outgoing bytes.
func (s *FileTokenStore) seal(data []byte) ([]byte, error) {
	switch s.security {
	case SecurityPlainText:
		return data, nil
	case SecuritySSHKey:
		if s.encMgr == nil {
			return nil, fmt.Errorf("encryption manager not initialized")
		}
		sealed, err := s.encMgr.Encrypt(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt token: %w", err)
		}
		return sealed, nil
	default:
		return nil, fmt.Errorf("unknown security method: %s", s.security)
	}
}

// open reverses seal for bytes read back from disk.
func (s *FileTokenStore) open(data []byte) ([]byte, error) {
	switch s.security {
	case SecurityPlainText:
		return data, nil
	case SecuritySSHKey:
		if s.encMgr == nil {
			return nil, fmt.Errorf("encryption manager not initialized")
		}
		opened, err := s.encMgr.Decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt token: %w", err)
		}
		return opened, nil
	default:
		return nil, fmt.Errorf("unknown security method: %s", s.security)
	}
}

// tokenPath keeps encrypted and plaintext tokens under different extensions
// so a security-method change does not misread old files.
func (s *FileTokenStore) tokenPath() string {
	ext := "json"
	if s.security == SecuritySSHKey {
		ext = "enc"
	}
	return filepath.Join(s.dataDir, fmt.Sprintf("oauth_token_%s.%s", s.pluginID, ext))
}
