package world

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode"

	"thegrind.cafe/internal/sim/catalogs"
	"thegrind.cafe/internal/sim/tuning"
	"thegrind.cafe/internal/sim/world/logic/mathx"
)

var ErrEmptySave = errors.New("empty save")

// rawSteps upgrade a decoded save one schema version at a time, before it is
// decoded into State. Index i upgrades version i to i+1.
var rawSteps = []func(m map[string]any){
	migrateV0, // camelCase browser export -> snake_case
	migrateV1, // market prices
}

// Migrate decodes a save of any known version onto the defaults of a fresh
// State, so keys missing from old saves keep their current default, then
// backfills derived and required fields. Unrelated data is kept as is.
func Migrate(raw []byte, cats *catalogs.Catalogs, tun tuning.Tuning) (State, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return State{}, ErrEmptySave
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return State{}, fmt.Errorf("decode save: %w", err)
	}
	if m == nil {
		return State{}, ErrEmptySave
	}

	version := 0
	if v, ok := m["version"].(float64); ok {
		version = int(v)
	}
	if version > CurrentVersion {
		return State{}, fmt.Errorf("save version %d is newer than %d", version, CurrentVersion)
	}
	for v := version; v < len(rawSteps); v++ {
		rawSteps[v](m)
		m["version"] = v + 1
	}

	b, err := json.Marshal(m)
	if err != nil {
		return State{}, fmt.Errorf("re-encode save: %w", err)
	}
	st := NewState(cats, tun)
	resetProvidedLists(&st, m)
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, fmt.Errorf("decode save: %w", err)
	}
	backfill(&st, cats, tun)
	return st, nil
}

// resetProvidedLists empties default lists the save carries itself;
// encoding/json decodes array elements over existing ones.
func resetProvidedLists(st *State, m map[string]any) {
	lists := map[string]func(){
		"staff":           func() { st.Staff = nil },
		"managers":        func() { st.Managers = nil },
		"orders":          func() { st.Orders = nil },
		"inventory":       func() { st.Inventory = nil },
		"menu":            func() { st.Menu = nil },
		"owned_equipment": func() { st.OwnedEquipment = nil },
		"amenities":       func() { st.Amenities = nil },
		"quests":          func() { st.Quests = nil },
	}
	for key, reset := range lists {
		if _, ok := m[key]; ok {
			reset()
		}
	}
}

// Migrate is Migrate with the engine's catalogs and tuning.
func (e *Engine) Migrate(raw []byte) (State, error) {
	return Migrate(raw, e.cats, e.tun)
}

// dataKeys hold maps keyed by item names, which are never renamed.
var dataKeys = map[string]bool{"ingredients": true, "menuItemProficiency": true, "menu_item_proficiency": true}

func migrateV0(m map[string]any) {
	renameKeys(m)
	if orders, ok := m["orders"].([]any); ok {
		for _, o := range orders {
			if om, ok := o.(map[string]any); ok {
				om["id"] = idString(om["id"])
			}
		}
	}
	if staff, ok := m["staff"].([]any); ok {
		for _, s := range staff {
			if sm, ok := s.(map[string]any); ok {
				sm["current_order"] = idString(sm["current_order"])
			}
		}
	}
	// Upgrades stored their multiplier under the equipment's field name.
	if owned, ok := m["owned_equipment"].([]any); ok {
		for _, eq := range owned {
			em, _ := eq.(map[string]any)
			ups, _ := em["upgrades"].([]any)
			for _, u := range ups {
				um, ok := u.(map[string]any)
				if !ok {
					continue
				}
				if fc, ok := um["failure_chance"]; ok {
					if _, done := um["failure_multiplier"]; !done {
						um["failure_multiplier"] = fc
					}
					delete(um, "failure_chance")
				}
			}
		}
	}
	if quests, ok := m["quests"].([]any); ok {
		for _, q := range quests {
			if qm, ok := q.(map[string]any); ok && qm["id"] == "first week" {
				qm["id"] = "first-week"
			}
		}
	}
}

func migrateV1(m map[string]any) {
	fill := func(items any) {
		list, _ := items.([]any)
		for _, it := range list {
			im, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if mp, ok := im["market_price"].(float64); !ok || mp == 0 {
				im["market_price"] = im["price"]
			}
		}
	}
	fill(m["menu"])
	if orders, ok := m["orders"].([]any); ok {
		for _, o := range orders {
			if om, ok := o.(map[string]any); ok {
				fill(om["items"])
				fill(om["original_items"])
			}
		}
	}
}

func renameKeys(v any) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		for _, k := range keys {
			val := t[k]
			if !dataKeys[k] {
				renameKeys(val)
			}
			if nk := snakeCase(k); nk != k {
				delete(t, k)
				t[nk] = val
			}
		}
	case []any:
		for _, val := range t {
			renameKeys(val)
		}
	}
}

// snakeCase converts lowerCamel identifiers; anything else is returned as is.
func snakeCase(s string) string {
	if s == "" || !unicode.IsLower(rune(s[0])) {
		return s
	}
	var b bytes.Buffer
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			b.WriteByte('_')
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			return s
		}
	}
	return b.String()
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// backfill repairs fields every current State must have. It is safe to run
// on an already current save.
func backfill(st *State, cats *catalogs.Catalogs, tun tuning.Tuning) {
	st.Version = CurrentVersion
	if st.Staff == nil {
		st.Staff = []Employee{}
	}
	if st.Managers == nil {
		st.Managers = []Manager{}
	}
	if st.Orders == nil {
		st.Orders = []Order{}
	}
	if st.Inventory == nil {
		st.Inventory = []InventoryItem{}
	}
	if st.Menu == nil {
		st.Menu = []MenuItem{}
	}
	if st.OwnedEquipment == nil {
		st.OwnedEquipment = []EquipmentInstance{}
	}
	if st.Amenities == nil {
		st.Amenities = []OwnedAmenity{}
	}

	for i := range st.Staff {
		e := &st.Staff[i]
		if e.MenuItemProficiency == nil {
			e.MenuItemProficiency = map[string]int{}
		}
		if e.DailyMenuItemsMade == nil {
			e.DailyMenuItemsMade = []string{}
		}
		if e.Happiness == 0 {
			e.Happiness = 1
		}
	}
	for i := range st.Managers {
		if st.Managers[i].Happiness == 0 {
			st.Managers[i].Happiness = 1
		}
	}
	for i := range st.Menu {
		if st.Menu[i].MarketPrice == 0 {
			st.Menu[i].MarketPrice = st.Menu[i].Price
		}
		if st.Menu[i].Ingredients == nil {
			st.Menu[i].Ingredients = map[string]int{}
		}
	}
	for i := range st.OwnedEquipment {
		if st.OwnedEquipment[i].Upgrades == nil {
			st.OwnedEquipment[i].Upgrades = []Upgrade{}
		}
	}

	if st.Vibe == 0 {
		st.Vibe = 1
		for _, a := range st.Amenities {
			st.Vibe += a.Vibe
		}
	}

	have := make(map[string]bool, len(st.Quests))
	for _, q := range st.Quests {
		have[q.ID] = true
	}
	for _, q := range questsFromCatalog(cats) {
		if !have[q.ID] {
			st.Quests = append(st.Quests, q)
		}
	}

	if st.Settings.TickIntervalMS <= 0 {
		st.Settings.TickIntervalMS = tun.TickIntervalMS
	}
	if st.Settings.DismissedTips == nil {
		st.Settings.DismissedTips = []string{}
	}

	st.TotalDemand = TotalDemand(st.Menu)
	st.Cash = mathx.RoundWhole(st.Cash)
}
