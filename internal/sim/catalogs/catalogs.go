package catalogs

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

//go:embed defaults/*.json
var defaultsFS embed.FS

type Catalogs struct {
	Menu        MenuCatalog
	Ingredients IngredientCatalog
	Equipment   EquipmentCatalog
	Amenities   AmenityCatalog
	Quests      QuestCatalog
}

type MenuCatalog struct {
	Items  []MenuItemDef
	ByName map[string]MenuItemDef
	Digest string
}

type MenuItemDef struct {
	Name        string         `json:"name"`
	Ingredients map[string]int `json:"ingredients"`
	Price       float64        `json:"price"`
	Complexity  float64        `json:"complexity"`
	Demand      float64        `json:"demand"` // drip coffee = 100
	Default     bool           `json:"default,omitempty"`
	Requires    []string       `json:"requires,omitempty"`
}

type IngredientCatalog struct {
	Items  []IngredientDef
	ByName map[string]IngredientDef
	Digest string
}

// IngredientDef is a purchasable package of one ingredient.
type IngredientDef struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Quantity    int      `json:"quantity"`
	Cost        float64  `json:"cost"`
	Requires    []string `json:"requires,omitempty"`
}

type EquipmentCatalog struct {
	Items  []EquipmentDef
	ByName map[string]EquipmentDef
	Digest string
}

type EquipmentDef struct {
	Name          string       `json:"name"`
	Cost          float64      `json:"cost"`
	Quality       float64      `json:"quality"`
	Durability    float64      `json:"durability"` // wear probability per use
	FailureChance float64      `json:"failure_chance"`
	Upgrades      []UpgradeDef `json:"upgrades"`
}

type UpgradeDef struct {
	Description       string  `json:"description"`
	Cost              float64 `json:"cost"`
	SpeedMultiplier   float64 `json:"speed_multiplier,omitempty"`
	FailureMultiplier float64 `json:"failure_multiplier,omitempty"`
}

type AmenityCatalog struct {
	Items  []AmenityDef
	ByName map[string]AmenityDef
	Digest string
}

type AmenityDef struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	WeeklyCost  float64 `json:"weekly_cost"`
	Vibe        float64 `json:"vibe"`
}

type QuestCatalog struct {
	Items  []QuestDef
	ByID   map[string]QuestDef
	Digest string
}

type QuestDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Reward      Reward `json:"reward"`
}

type Reward struct {
	Cash       float64 `json:"cash"`
	Popularity float64 `json:"popularity"`
}

// Load reads the catalogs from a config directory.
func Load(configDir string) (*Catalogs, error) {
	return LoadFS(os.DirFS(configDir))
}

// Default returns the catalogs compiled into the binary.
func Default() *Catalogs {
	sub, err := fs.Sub(defaultsFS, "defaults")
	if err != nil {
		panic(err)
	}
	c, err := LoadFS(sub)
	if err != nil {
		panic(fmt.Sprintf("embedded catalogs: %v", err))
	}
	return c
}

func LoadFS(fsys fs.FS) (*Catalogs, error) {
	var c Catalogs

	if err := loadEquipment(fsys, "equipment.json", &c.Equipment); err != nil {
		return nil, err
	}
	if err := loadIngredients(fsys, "ingredients.json", &c.Ingredients); err != nil {
		return nil, err
	}
	if err := loadMenu(fsys, "menu.json", &c.Menu); err != nil {
		return nil, err
	}
	if err := loadAmenities(fsys, "amenities.json", &c.Amenities); err != nil {
		return nil, err
	}
	if err := loadQuests(fsys, "quests.json", &c.Quests); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func readJSON(fsys fs.FS, name string, out any) (string, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return sha256Hex(raw), nil
}

func loadMenu(fsys fs.FS, name string, out *MenuCatalog) error {
	digest, err := readJSON(fsys, name, &out.Items)
	if err != nil {
		return err
	}
	out.Digest = digest
	out.ByName = make(map[string]MenuItemDef, len(out.Items))
	for _, d := range out.Items {
		if d.Name == "" {
			return fmt.Errorf("%s: empty name", name)
		}
		if _, dup := out.ByName[d.Name]; dup {
			return fmt.Errorf("%s: duplicate item %q", name, d.Name)
		}
		if d.Price <= 0 {
			return fmt.Errorf("%s: %q: price must be > 0", name, d.Name)
		}
		out.ByName[d.Name] = d
	}
	return nil
}

func loadIngredients(fsys fs.FS, name string, out *IngredientCatalog) error {
	digest, err := readJSON(fsys, name, &out.Items)
	if err != nil {
		return err
	}
	out.Digest = digest
	out.ByName = make(map[string]IngredientDef, len(out.Items))
	for _, d := range out.Items {
		if d.Name == "" {
			return fmt.Errorf("%s: empty name", name)
		}
		if d.Quantity <= 0 {
			return fmt.Errorf("%s: %q: quantity must be > 0", name, d.Name)
		}
		out.ByName[d.Name] = d
	}
	return nil
}

func loadEquipment(fsys fs.FS, name string, out *EquipmentCatalog) error {
	digest, err := readJSON(fsys, name, &out.Items)
	if err != nil {
		return err
	}
	out.Digest = digest
	out.ByName = make(map[string]EquipmentDef, len(out.Items))
	for _, d := range out.Items {
		if d.Name == "" {
			return fmt.Errorf("%s: empty name", name)
		}
		if d.FailureChance < 0 || d.FailureChance > 1 || d.Durability < 0 || d.Durability > 1 {
			return fmt.Errorf("%s: %q: probabilities must be within [0,1]", name, d.Name)
		}
		out.ByName[d.Name] = d
	}
	return nil
}

func loadAmenities(fsys fs.FS, name string, out *AmenityCatalog) error {
	digest, err := readJSON(fsys, name, &out.Items)
	if err != nil {
		return err
	}
	out.Digest = digest
	out.ByName = make(map[string]AmenityDef, len(out.Items))
	for _, d := range out.Items {
		if d.Name == "" {
			return fmt.Errorf("%s: empty name", name)
		}
		out.ByName[d.Name] = d
	}
	return nil
}

func loadQuests(fsys fs.FS, name string, out *QuestCatalog) error {
	digest, err := readJSON(fsys, name, &out.Items)
	if err != nil {
		return err
	}
	out.Digest = digest
	out.ByID = make(map[string]QuestDef, len(out.Items))
	for _, d := range out.Items {
		if d.ID == "" {
			return fmt.Errorf("%s: empty id", name)
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("%s: duplicate quest %q", name, d.ID)
		}
		out.ByID[d.ID] = d
	}
	return nil
}

// validate checks cross-table references.
func (c *Catalogs) validate() error {
	for _, m := range c.Menu.Items {
		for _, req := range m.Requires {
			if _, ok := c.Equipment.ByName[req]; !ok {
				return fmt.Errorf("menu.json: %q requires unknown equipment %q", m.Name, req)
			}
		}
		for ing := range m.Ingredients {
			if _, ok := c.Ingredients.ByName[ing]; !ok {
				return fmt.Errorf("menu.json: %q uses unknown ingredient %q", m.Name, ing)
			}
		}
	}
	for _, ing := range c.Ingredients.Items {
		for _, req := range ing.Requires {
			if _, ok := c.Equipment.ByName[req]; !ok {
				return fmt.Errorf("ingredients.json: %q requires unknown equipment %q", ing.Name, req)
			}
		}
	}
	return nil
}

func (c *Catalogs) MenuItem(name string) (MenuItemDef, bool) {
	d, ok := c.Menu.ByName[name]
	return d, ok
}

func (c *Catalogs) Ingredient(name string) (IngredientDef, bool) {
	d, ok := c.Ingredients.ByName[name]
	return d, ok
}

func (c *Catalogs) EquipmentDef(name string) (EquipmentDef, bool) {
	d, ok := c.Equipment.ByName[name]
	return d, ok
}

func (c *Catalogs) Amenity(name string) (AmenityDef, bool) {
	d, ok := c.Amenities.ByName[name]
	return d, ok
}

func (c *Catalogs) Quest(id string) (QuestDef, bool) {
	d, ok := c.Quests.ByID[id]
	return d, ok
}

// DefaultMenu returns the items a fresh cafe starts with, in catalog order.
func (c *Catalogs) DefaultMenu() []MenuItemDef {
	var out []MenuItemDef
	for _, m := range c.Menu.Items {
		if m.Default {
			out = append(out, m)
		}
	}
	return out
}

// Digests returns table name -> sha256 of the raw json, sorted by name.
func (c *Catalogs) Digests() []TableDigest {
	out := []TableDigest{
		{Name: "amenities", Digest: c.Amenities.Digest, Count: len(c.Amenities.Items)},
		{Name: "equipment", Digest: c.Equipment.Digest, Count: len(c.Equipment.Items)},
		{Name: "ingredients", Digest: c.Ingredients.Digest, Count: len(c.Ingredients.Items)},
		{Name: "menu", Digest: c.Menu.Digest, Count: len(c.Menu.Items)},
		{Name: "quests", Digest: c.Quests.Digest, Count: len(c.Quests.Items)},
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type TableDigest struct {
	Name   string `json:"name"`
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}
