package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Store is the read side of the business catalog.
type Store interface {
	ListServices(ctx context.Context) ([]Service, error)
	ListStaff(ctx context.Context) ([]Staff, error)
	BusinessKnowledge(ctx context.Context) (string, error)
	BusinessSettings(ctx context.Context) (Settings, error)
}

// StaticStore serves a fixed profile.
type StaticStore struct {
	profile Profile
}

func NewStaticStore(profile Profile) *StaticStore {
	return &StaticStore{profile: profile}
}

// LoadFile reads a YAML profile from disk. Missing sections keep their zero value.
func LoadFile(path string) (*StaticStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	profile, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return NewStaticStore(profile), nil
}

// ParseProfile decodes a YAML profile document.
func ParseProfile(data []byte) (Profile, error) {
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	if profile.Business.BusinessName == "" {
		return Profile{}, fmt.Errorf("parse profile: business.name is required")
	}
	return profile, nil
}

func (s *StaticStore) ListServices(context.Context) ([]Service, error) {
	return append([]Service(nil), s.profile.Services...), nil
}

func (s *StaticStore) ListStaff(context.Context) ([]Staff, error) {
	return append([]Staff(nil), s.profile.Staff...), nil
}

func (s *StaticStore) BusinessKnowledge(context.Context) (string, error) {
	return s.profile.KnowledgeText(), nil
}

func (s *StaticStore) BusinessSettings(context.Context) (Settings, error) {
	return s.profile.Business, nil
}
