// Package registry loads the game data tables: race tuning per game mode,
// map blocks with their item spawners, item decks and the horse part pools
// used when rolling a starter horse. Tables live as JSON files and are
// schema-checked on load; Default returns the built-in tables so a server
// can boot without a data directory.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// GameModeDef is the per-mode race tuning block.
type GameModeDef struct {
	Mode uint8 `json:"mode"`

	StarPointsMax         uint32 `json:"star_points_max"`
	PerfectJumpStarPoints uint32 `json:"perfect_jump_star_points"`
	UnitStarPoints        uint32 `json:"unit_star_points"`
	MaxBonusCombo         uint32 `json:"max_bonus_combo"`
	GoodJumpStarPoints    uint32 `json:"good_jump_star_points"`
	SpurConsumeStarPoints uint32 `json:"spur_consume_star_points"`
	NoItemHeldBoostAmount uint32 `json:"no_item_held_boost_amount"`

	// BonusSkills is the pool one extra race skill is rolled from.
	BonusSkills []uint32 `json:"bonus_skills"`
	// MapPool holds the map block ids eligible for random course picks.
	MapPool []uint16 `json:"map_pool"`
}

// ItemSpawnDef is one spawner slot on a map block.
type ItemSpawnDef struct {
	DeckID      uint16     `json:"deck_id"`
	Position    [3]float32 `json:"position"`
	Orientation [4]float32 `json:"orientation"`
}

// MapBlockDef describes one playable course.
type MapBlockDef struct {
	ID            uint16         `json:"id"`
	RequiredLevel uint16         `json:"required_level"`
	TimeLimitMs   uint32         `json:"time_limit_ms"`
	WaitTimeMs    uint32         `json:"wait_time_ms"`
	ItemSpawns    []ItemSpawnDef `json:"item_spawns,omitempty"`
}

// ItemDeckDef maps a spawner deck to the item type it produces.
type ItemDeckDef struct {
	ID            uint16 `json:"id"`
	ItemType      uint32 `json:"item_type"`
	RemoveDelayMs int32  `json:"remove_delay_ms"`
}

// HorsePartsDef holds the pools a starter horse's looks are rolled from.
type HorsePartsDef struct {
	SkinIDs []uint8 `json:"skin_ids"`
	ManeIDs []uint8 `json:"mane_ids"`
	TailIDs []uint8 `json:"tail_ids"`
	FaceIDs []uint8 `json:"face_ids"`
}

// Registry is the loaded data set. Lookups are read-only after Load.
type Registry struct {
	GameModes  map[uint8]GameModeDef
	MapBlocks  map[uint16]MapBlockDef
	ItemDecks  map[uint16]ItemDeckDef
	HorseParts HorsePartsDef

	// Digests fingerprint the raw table files for the admin surface.
	Digests map[string]string
}

// GameMode returns the tuning block for mode, falling back to the speed
// mode block when the mode has no table entry.
func (r *Registry) GameMode(mode uint8) GameModeDef {
	if def, ok := r.GameModes[mode]; ok {
		return def
	}
	return r.GameModes[1]
}

func (r *Registry) MapBlock(id uint16) (MapBlockDef, bool) {
	def, ok := r.MapBlocks[id]
	return def, ok
}

func (r *Registry) ItemDeck(id uint16) (ItemDeckDef, bool) {
	def, ok := r.ItemDecks[id]
	return def, ok
}

const gameModesSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["mode", "star_points_max", "perfect_jump_star_points", "unit_star_points", "max_bonus_combo"],
    "properties": {
      "mode": {"type": "integer", "minimum": 1, "maximum": 255},
      "star_points_max": {"type": "integer", "minimum": 0},
      "perfect_jump_star_points": {"type": "integer", "minimum": 0},
      "unit_star_points": {"type": "integer", "minimum": 0},
      "max_bonus_combo": {"type": "integer", "minimum": 0},
      "good_jump_star_points": {"type": "integer", "minimum": 0},
      "spur_consume_star_points": {"type": "integer", "minimum": 0},
      "no_item_held_boost_amount": {"type": "integer", "minimum": 0},
      "bonus_skills": {"type": "array", "items": {"type": "integer", "minimum": 0}},
      "map_pool": {"type": "array", "items": {"type": "integer", "minimum": 1}}
    }
  }
}`

const mapBlocksSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "time_limit_ms", "wait_time_ms"],
    "properties": {
      "id": {"type": "integer", "minimum": 1},
      "required_level": {"type": "integer", "minimum": 0},
      "time_limit_ms": {"type": "integer", "minimum": 1000},
      "wait_time_ms": {"type": "integer", "minimum": 0},
      "item_spawns": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["deck_id", "position"],
          "properties": {
            "deck_id": {"type": "integer", "minimum": 1},
            "position": {"type": "array", "minItems": 3, "maxItems": 3, "items": {"type": "number"}},
            "orientation": {"type": "array", "minItems": 4, "maxItems": 4, "items": {"type": "number"}}
          }
        }
      }
    }
  }
}`

const itemDecksSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "item_type"],
    "properties": {
      "id": {"type": "integer", "minimum": 1},
      "item_type": {"type": "integer", "minimum": 0},
      "remove_delay_ms": {"type": "integer"}
    }
  }
}`

const horsePartsSchema = `{
  "type": "object",
  "required": ["skin_ids", "mane_ids", "tail_ids", "face_ids"],
  "properties": {
    "skin_ids": {"type": "array", "minItems": 1, "items": {"type": "integer", "minimum": 0, "maximum": 255}},
    "mane_ids": {"type": "array", "minItems": 1, "items": {"type": "integer", "minimum": 0, "maximum": 255}},
    "tail_ids": {"type": "array", "minItems": 1, "items": {"type": "integer", "minimum": 0, "maximum": 255}},
    "face_ids": {"type": "array", "minItems": 1, "items": {"type": "integer", "minimum": 0, "maximum": 255}}
  }
}`

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// loadTable reads, schema-checks and decodes one table file.
func loadTable(path, schemaSrc string, out any, digests map[string]string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	digests[name] = sha256Hex(raw)

	schema := jsonschema.MustCompileString(name, schemaSrc)
	var loose any
	if err := json.Unmarshal(raw, &loose); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := schema.Validate(loose); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Load reads every table from dataDir. Missing files fall back to the
// built-in defaults for that table; malformed files fail the load.
func Load(dataDir string) (*Registry, error) {
	r := Default()
	r.Digests = map[string]string{}

	var modes []GameModeDef
	err := loadTable(filepath.Join(dataDir, "game_modes.json"), gameModesSchema, &modes, r.Digests)
	switch {
	case err == nil:
		r.GameModes = map[uint8]GameModeDef{}
		for _, def := range modes {
			if _, dup := r.GameModes[def.Mode]; dup {
				return nil, fmt.Errorf("game_modes.json: duplicate mode %d", def.Mode)
			}
			r.GameModes[def.Mode] = def
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	var blocks []MapBlockDef
	err = loadTable(filepath.Join(dataDir, "map_blocks.json"), mapBlocksSchema, &blocks, r.Digests)
	switch {
	case err == nil:
		r.MapBlocks = map[uint16]MapBlockDef{}
		for _, def := range blocks {
			if _, dup := r.MapBlocks[def.ID]; dup {
				return nil, fmt.Errorf("map_blocks.json: duplicate id %d", def.ID)
			}
			r.MapBlocks[def.ID] = def
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	var decks []ItemDeckDef
	err = loadTable(filepath.Join(dataDir, "item_decks.json"), itemDecksSchema, &decks, r.Digests)
	switch {
	case err == nil:
		r.ItemDecks = map[uint16]ItemDeckDef{}
		for _, def := range decks {
			if _, dup := r.ItemDecks[def.ID]; dup {
				return nil, fmt.Errorf("item_decks.json: duplicate id %d", def.ID)
			}
			r.ItemDecks[def.ID] = def
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	var parts HorsePartsDef
	err = loadTable(filepath.Join(dataDir, "horse_parts.json"), horsePartsSchema, &parts, r.Digests)
	switch {
	case err == nil:
		r.HorseParts = parts
	case !os.IsNotExist(err):
		return nil, err
	}

	if _, ok := r.GameModes[1]; !ok {
		return nil, fmt.Errorf("game_modes.json: speed mode (1) is required")
	}
	for mode, def := range r.GameModes {
		for _, id := range def.MapPool {
			if _, ok := r.MapBlocks[id]; !ok {
				return nil, fmt.Errorf("game_modes.json: mode %d references unknown map block %d", mode, id)
			}
		}
	}
	for id, block := range r.MapBlocks {
		for _, spawn := range block.ItemSpawns {
			if _, ok := r.ItemDecks[spawn.DeckID]; !ok {
				return nil, fmt.Errorf("map_blocks.json: block %d references unknown deck %d", id, spawn.DeckID)
			}
		}
	}
	return r, nil
}

// Default returns the built-in tables.
func Default() *Registry {
	return &Registry{
		GameModes: map[uint8]GameModeDef{
			1: {
				Mode:                  1,
				StarPointsMax:         40000,
				PerfectJumpStarPoints: 1000,
				UnitStarPoints:        200,
				MaxBonusCombo:         5,
				GoodJumpStarPoints:    300,
				SpurConsumeStarPoints: 20000,
				BonusSkills:           []uint32{27002, 27005, 27008},
				MapPool:               []uint16{1, 2, 3},
			},
			2: {
				Mode:                  2,
				StarPointsMax:         40000,
				PerfectJumpStarPoints: 1000,
				UnitStarPoints:        200,
				MaxBonusCombo:         5,
				GoodJumpStarPoints:    300,
				SpurConsumeStarPoints: 20000,
				NoItemHeldBoostAmount: 2000,
				BonusSkills:           []uint32{28001, 28004},
				MapPool:               []uint16{1, 2},
			},
		},
		MapBlocks: map[uint16]MapBlockDef{
			1: {
				ID:          1,
				TimeLimitMs: 240_000,
				WaitTimeMs:  10_000,
				ItemSpawns: []ItemSpawnDef{
					{DeckID: 101, Position: [3]float32{120, -40, -8000}, Orientation: [4]float32{0, 0, 0, 1}},
					{DeckID: 101, Position: [3]float32{340, 15, -7960}, Orientation: [4]float32{0, 0, 0, 1}},
					{DeckID: 102, Position: [3]float32{560, -10, -7920}, Orientation: [4]float32{0, 0, 0, 1}},
				},
			},
			2: {
				ID:            2,
				RequiredLevel: 10,
				TimeLimitMs:   300_000,
				WaitTimeMs:    10_000,
				ItemSpawns: []ItemSpawnDef{
					{DeckID: 101, Position: [3]float32{90, 0, -8010}, Orientation: [4]float32{0, 0, 0, 1}},
					{DeckID: 102, Position: [3]float32{410, 30, -7950}, Orientation: [4]float32{0, 0, 0, 1}},
				},
			},
			3: {
				ID:            3,
				RequiredLevel: 20,
				TimeLimitMs:   360_000,
				WaitTimeMs:    12_000,
			},
		},
		ItemDecks: map[uint16]ItemDeckDef{
			101: {ID: 101, ItemType: 40000, RemoveDelayMs: -1},
			102: {ID: 102, ItemType: 10000, RemoveDelayMs: -1},
		},
		HorseParts: HorsePartsDef{
			SkinIDs: []uint8{1, 2, 3, 4, 5},
			ManeIDs: []uint8{1, 2, 3, 4},
			TailIDs: []uint8{1, 2, 3, 4},
			FaceIDs: []uint8{1, 2, 3},
		},
	}
}
