package lab

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/labmux/internal/util"
)

// Journal is the record of the most recent invocation against a session.
type Journal struct {
	RunID          string         `yaml:"run_id"`
	Session        string         `yaml:"session"`
	Socket         string         `yaml:"socket"`
	StartedAt      time.Time      `yaml:"started_at"`
	SessionCreated bool           `yaml:"session_created"`
	StaleReclaimed bool           `yaml:"stale_reclaimed,omitempty"`
	Slots          []JournalEntry `yaml:"slots"`
	Handoff        Handoff        `yaml:"handoff"`
}

// JournalEntry is one slot's line in the journal.
type JournalEntry struct {
	Name      string    `yaml:"name"`
	Created   bool      `yaml:"created"`
	Started   bool      `yaml:"started"`
	StartedAt time.Time `yaml:"started_at,omitempty"`
	Readiness string    `yaml:"readiness,omitempty"`
	Command   []string  `yaml:"command,omitempty"`
}

// NewJournal builds a journal for a finished sequencing run.
func NewJournal(session, socket string, startedAt time.Time, state SessionState, results []SlotResult, handoff Handoff) *Journal {
	j := &Journal{
		RunID:          uuid.NewString(),
		Session:        session,
		Socket:         socket,
		StartedAt:      startedAt,
		SessionCreated: state.Created,
		StaleReclaimed: state.StaleReclaimed,
		Handoff:        handoff,
	}
	for _, r := range results {
		j.Slots = append(j.Slots, JournalEntry{
			Name:      r.Name,
			Created:   r.Status == SlotCreated,
			Started:   r.Started,
			StartedAt: r.StartedAt,
			Readiness: r.Readiness,
			Command:   r.Argv,
		})
	}
	return j
}

// WriteJournal replaces the journal at path.
func WriteJournal(path string, j *Journal) error {
	data, err := yaml.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshaling journal: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing journal %s: %w", path, err)
	}
	return nil
}

// ReadJournal loads a journal written by WriteJournal.
func ReadJournal(path string) (*Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var j Journal
	if err := yaml.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parsing journal %s: %w", path, err)
	}
	return &j, nil
}
