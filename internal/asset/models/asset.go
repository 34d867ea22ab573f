package models

import (
	"math"
	"time"

	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
)

// Progression rules.
const (
	InitialLevel             uint64 = 1
	ExperiencePerInteraction uint64 = 10
	LevelThreshold           uint64 = 100
)

// AssetData is a minted ANIMA.
//
// Invariants:
//   - Owner, Designation, CreatedAt and SourceMemo are immutable after mint
//   - Designation is derived from ID
//   - Level >= 1 and neither Level nor Experience ever decreases
type AssetData struct {
	ID          id.AssetID     `json:"identifier"`
	Owner       id.PrincipalID `json:"owner"`
	Designation string         `json:"designation"`
	CreatedAt   time.Time      `json:"created_at"`
	Level       uint64         `json:"level"`
	Experience  uint64         `json:"experience"`
	SourceMemo  id.Memo        `json:"source_memo"`
}

// NewAsset builds a fresh level 1 asset for owner.
func NewAsset(assetID id.AssetID, owner id.PrincipalID, sourceMemo id.Memo, now time.Time) (*AssetData, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "asset owner cannot be empty")
	}
	return &AssetData{
		ID:          assetID,
		Owner:       owner,
		Designation: assetID.Designation(),
		CreatedAt:   now,
		Level:       InitialLevel,
		Experience:  0,
		SourceMemo:  sourceMemo,
	}, nil
}

// Validate checks the fields a restored or loaded asset must satisfy.
func (a *AssetData) Validate() error {
	if a.Owner.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "asset owner cannot be empty")
	}
	if a.Level < InitialLevel {
		return dErrors.New(dErrors.CodeInvariantViolation, "asset level must be at least 1")
	}
	if a.Designation != a.ID.Designation() {
		return dErrors.New(dErrors.CodeInvariantViolation, "asset designation does not match identifier")
	}
	return nil
}

// NextLevelAt is the experience needed to leave the current level.
// It saturates instead of wrapping for absurdly high levels.
func (a *AssetData) NextLevelAt() uint64 {
	if a.Level > math.MaxUint64/LevelThreshold {
		return math.MaxUint64
	}
	return a.Level * LevelThreshold
}

// ApplyExperience adds gained experience and raises the level as many times as
// the new total allows. It returns the number of levels gained.
func (a *AssetData) ApplyExperience(gained uint64) uint64 {
	if a.Experience > math.MaxUint64-gained {
		a.Experience = math.MaxUint64
	} else {
		a.Experience += gained
	}

	var levels uint64
	for {
		next := a.NextLevelAt()
		if next == math.MaxUint64 || a.Experience < next {
			break
		}
		a.Level++
		levels++
	}
	return levels
}

// Interact applies one interaction's worth of experience.
func (a *AssetData) Interact() (gained, levels uint64) {
	return ExperiencePerInteraction, a.ApplyExperience(ExperiencePerInteraction)
}

// MintResult is what a successful mint reports back to the caller.
type MintResult struct {
	ID          id.AssetID `json:"identifier"`
	Designation string     `json:"designation"`
}
