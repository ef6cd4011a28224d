package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// ChatStore 通过 /notifyhere 订阅的聊天，持久化到 JSON 文件
type ChatStore struct {
	mu    sync.Mutex
	path  string
	chats []int64
}

// OpenChatStore 文件不存在时返回空列表
func OpenChatStore(path string) (*ChatStore, error) {
	s := &ChatStore{path: path}
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &s.chats); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return s, nil
}

// Toggle 已订阅则取消，否则订阅；返回切换后是否订阅
func (s *ChatStore) Toggle(chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	enabled := true
	if i := slices.Index(s.chats, chatID); i >= 0 {
		s.chats = slices.Delete(s.chats, i, i+1)
		enabled = false
	} else {
		s.chats = append(s.chats, chatID)
	}
	return enabled, s.save()
}

func (s *ChatStore) List() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.chats)
}

func (s *ChatStore) save() error {
	if s.path == "" {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	b, err := json.MarshalIndent(s.chats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o644)
}
