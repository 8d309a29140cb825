// Package prize holds the fixed reward table shared by tournament creation and
// winner settlement.
package prize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"tournament-ledger/internal/models"
)

// EntryFeePerPlayer is charged for every registered player regardless of mode.
const EntryFeePerPlayer int64 = 50

type Table struct {
	rewards map[string][3]int64
}

func key(gameType models.GameType, mode models.TournamentMode) string {
	return fmt.Sprintf("%s-%s", gameType, mode)
}

// Default returns the built-in table. CS mirrors BR.
func Default() *Table {
	solo := [3]int64{2500, 1500, 1000}
	duo := [3]int64{3200, 1800, 1200}
	squad := [3]int64{3500, 2000, 1500}

	t := &Table{rewards: map[string][3]int64{}}
	for _, gt := range []models.GameType{models.GameBR, models.GameCS} {
		t.rewards[key(gt, models.ModeSolo)] = solo
		t.rewards[key(gt, models.ModeDuo)] = duo
		t.rewards[key(gt, models.ModeSquad)] = squad
	}
	return t
}

// RewardFor returns the coins for a placement. Zero means the combination is
// not configured and must be treated as an error by callers.
func (t *Table) RewardFor(gameType models.GameType, mode models.TournamentMode, placement int) int64 {
	if placement < 1 || placement > 3 {
		return 0
	}
	rewards, ok := t.rewards[key(gameType, mode)]
	if !ok {
		return 0
	}
	return rewards[placement-1]
}

func (t *Table) TotalPool(gameType models.GameType, mode models.TournamentMode) int64 {
	rewards, ok := t.rewards[key(gameType, mode)]
	if !ok {
		return 0
	}
	return rewards[0] + rewards[1] + rewards[2]
}

type fileEntry struct {
	GameType string  `yaml:"game_type"`
	Mode     string  `yaml:"mode"`
	Rewards  []int64 `yaml:"rewards"`
}

type fileLayout struct {
	Prizes []fileEntry `yaml:"prizes"`
}

// Load starts from the default table and applies the overrides found in the
// YAML file at path. An empty path yields the default table.
func Load(path string) (*Table, error) {
	t := Default()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prize table %s: %w", path, err)
	}

	var layout fileLayout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to parse prize table %s: %w", path, err)
	}

	for i, entry := range layout.Prizes {
		gameType, err := models.ParseGameType(entry.GameType)
		if err != nil {
			return nil, fmt.Errorf("prize entry %d: %w", i, err)
		}
		mode, err := models.ParseMode(entry.Mode)
		if err != nil {
			return nil, fmt.Errorf("prize entry %d: %w", i, err)
		}
		if len(entry.Rewards) != 3 {
			return nil, fmt.Errorf("prize entry %d: expected 3 rewards, got %d", i, len(entry.Rewards))
		}
		var rewards [3]int64
		for p, r := range entry.Rewards {
			if r <= 0 {
				return nil, fmt.Errorf("prize entry %d: reward for placement %d must be positive", i, p+1)
			}
			rewards[p] = r
		}
		t.rewards[key(gameType, mode)] = rewards
	}
	return t, nil
}
