package notification

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
)

const DefaultVolume = 0.5

// RoleSounds maps a dashboard role to the public URL of its alert sound.
var RoleSounds = map[string]string{
	"admin":   "/sounds/notification.mp3",
	"teacher": "/sounds/teacher-notification.mp3",
	"student": "/sounds/student-notification.mp3",
}

type SoundAsset struct {
	Role   string
	URL    string
	Volume float64
	Size   int64
}

// SoundBank loads role sounds from disk on first use and remembers them.
type SoundBank struct {
	dir string

	mu     sync.Mutex
	loaded map[string]*SoundAsset
}

func NewSoundBank(dir string) *SoundBank {
	return &SoundBank{dir: dir, loaded: make(map[string]*SoundAsset)}
}

// Dir is where the asset files live.
func (b *SoundBank) Dir() string { return b.dir }

func (b *SoundBank) Load(role string) (*SoundAsset, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if a, ok := b.loaded[role]; ok {
		return a, nil
	}
	url, ok := RoleSounds[role]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownRole, role)
	}

	info, err := os.Stat(filepath.Join(b.dir, path.Base(url)))
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSoundMissing, url)
	}

	a := &SoundAsset{Role: role, URL: url, Volume: DefaultVolume, Size: info.Size()}
	b.loaded[role] = a
	return a, nil
}

func (b *SoundBank) Loaded(role string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.loaded[role]
	return ok
}
