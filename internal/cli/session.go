package cli

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fjglira/srd-testgen/internal/domain"
)

// session is the on-disk state of an interactive improve loop.
type session struct {
	Label   string          `yaml:"label"`
	RunID   string          `yaml:"run_id"`
	History *domain.History `yaml:"history"`
}

func loadSession(path string, limit int) (*session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewErrorWithSuggestion("config", "", "", "failed to read session "+path,
			"run generate with --session first", err)
	}
	s := &session{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, domain.NewError("config", "", "", "failed to parse session "+path, err)
	}
	if s.History == nil {
		s.History = domain.NewHistory(limit)
	}
	if s.History.Limit <= 0 {
		s.History.Limit = limit
	}
	return s, nil
}

func (s *session) save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return domain.NewError("report", "", "", "failed to write session "+path, err)
	}
	log.Debugf("Session saved: %s (%d turn(s))", path, len(s.History.Turns))
	return nil
}
