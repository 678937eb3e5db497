package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog/log"

	"matchengine/internal/model"
)

// ErrConfigMissing means the rules document was absent at startup. The
// engine refuses to start without it.
var ErrConfigMissing = errors.New("rules document missing")

const defaultMaxLatency = 150

// Registry is the read-only per-mode rules lookup, built once at engine
// start and passed into the scheduler.
type Registry struct {
	rules map[string]model.ModeRules
	modes []string
}

// Load reads the rules document at path. A missing file yields
// ErrConfigMissing.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().Str("path", path).Msg("Rules document not found")
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("error reading rules document: %w", err)
	}

	var raw map[string]model.ModeRules
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing rules document: %w", err)
	}

	return New(raw)
}

// New builds a registry from an already-parsed rules map, validating each
// mode's rules. JSON objects carry no order, so modes iterate in sorted
// name order to keep tick traversal stable across runs.
func New(raw map[string]model.ModeRules) (*Registry, error) {
	rules := make(map[string]model.ModeRules, len(raw))
	modes := make([]string, 0, len(raw))

	for mode, r := range raw {
		if err := validate(mode, r); err != nil {
			return nil, err
		}
		if r.MaxLatency <= 0 {
			r.MaxLatency = defaultMaxLatency
		}
		rules[mode] = r
		modes = append(modes, mode)
	}
	sort.Strings(modes)

	log.Info().Int("modes", len(modes)).Msg("Rules registry loaded")
	return &Registry{rules: rules, modes: modes}, nil
}

func validate(mode string, r model.ModeRules) error {
	if r.TeamSize < 1 {
		return fmt.Errorf("mode %q: teamSize must be >= 1", mode)
	}
	if r.NumTeams < 2 {
		return fmt.Errorf("mode %q: numTeams must be >= 2", mode)
	}
	if r.SkillTolerance < 0 {
		return fmt.Errorf("mode %q: skillTolerance must be >= 0", mode)
	}
	prev := model.ExpandStep{AfterSeconds: -1, NewTolerance: r.SkillTolerance}
	for i, step := range r.ExpandSearchSteps {
		if step.AfterSeconds <= prev.AfterSeconds {
			return fmt.Errorf("mode %q: expandSearchSteps[%d] not ascending by afterSeconds", mode, i)
		}
		if step.NewTolerance < prev.NewTolerance {
			return fmt.Errorf("mode %q: expandSearchSteps[%d] tolerance must be non-decreasing", mode, i)
		}
		prev = step
	}
	return nil
}

// Get retrieves the rules for a mode.
func (reg *Registry) Get(mode string) (model.ModeRules, bool) {
	r, ok := reg.rules[mode]
	return r, ok
}

// Modes returns all configured mode names in iteration order.
func (reg *Registry) Modes() []string {
	out := make([]string, len(reg.modes))
	copy(out, reg.modes)
	return out
}
