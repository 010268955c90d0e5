package world

import (
	"maps"
	"slices"

	"thegrind.cafe/internal/sim/catalogs"
	"thegrind.cafe/internal/sim/tuning"
)

// CurrentVersion is the State schema version written by this build.
const CurrentVersion = 2

type Trait string

const (
	TraitGeneral   Trait = "GENERAL"
	TraitFinancial Trait = "FINANCIAL"
	TraitInventory Trait = "INVENTORY"
)

func (t Trait) Valid() bool {
	switch t {
	case TraitGeneral, TraitFinancial, TraitInventory:
		return true
	}
	return false
}

// State is the whole cafe. The runner owns it for the duration of a tick;
// everyone else reads settled copies.
type State struct {
	Version int    `json:"version"`
	Tick    uint64 `json:"tick"`

	Cash         float64 `json:"cash"`
	StartingCash float64 `json:"starting_cash"`
	Popularity   float64 `json:"popularity"`
	TotalDemand  float64 `json:"total_demand"`
	Vibe         float64 `json:"vibe"`
	PlayerName   string  `json:"player_name,omitempty"`

	Staff          []Employee          `json:"staff"`
	Managers       []Manager           `json:"managers"`
	Orders         []Order             `json:"orders"`
	Inventory      []InventoryItem     `json:"inventory"`
	Menu           []MenuItem          `json:"menu"`
	OwnedEquipment []EquipmentInstance `json:"owned_equipment"`
	Amenities      []OwnedAmenity      `json:"amenities"`
	Quests         []QuestState        `json:"quests"`
	Stats          DailyStats          `json:"stats"`
	Settings       Settings            `json:"settings"`

	Paused           bool     `json:"paused"`
	ShowEndOfDay     bool     `json:"show_end_of_day"`
	EndOfDayMessages []string `json:"end_of_day_messages,omitempty"`
	Tip              string   `json:"tip,omitempty"`
}

type Employee struct {
	Name                string         `json:"name"`
	DailyWage           float64        `json:"daily_wage"`
	Experience          float64        `json:"experience"`
	CurrentOrder        string         `json:"current_order,omitempty"`
	MenuItemProficiency map[string]int `json:"menu_item_proficiency"`
	Happiness           float64        `json:"happiness"`
	DailyMenuItemsMade  []string       `json:"daily_menu_items_made"`
	WageAdvisoryDay     int            `json:"wage_advisory_day,omitempty"`
}

type Manager struct {
	Name       string  `json:"name"`
	DailyWage  float64 `json:"daily_wage"`
	Experience float64 `json:"experience"`
	Happiness  float64 `json:"happiness"`
	Trait      Trait   `json:"trait"`
}

type Order struct {
	ID               string     `json:"id"`
	Customer         string     `json:"customer"`
	Items            []MenuItem `json:"items"`
	OriginalItems    []MenuItem `json:"original_items"`
	Completion       float64    `json:"completion"`
	TicksToComplete  int        `json:"ticks_to_complete"`
	CustomerPatience int        `json:"customer_patience"`
}

func (o Order) Done() bool { return o.Completion >= 100 && len(o.Items) == 0 }

type MenuItem struct {
	Name        string         `json:"name"`
	Ingredients map[string]int `json:"ingredients"`
	Price       float64        `json:"price"`
	MarketPrice float64        `json:"market_price"`
	Complexity  float64        `json:"complexity"`
	Demand      float64        `json:"demand"`
	Requires    []string       `json:"requires,omitempty"`
}

type InventoryItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
}

type EquipmentInstance struct {
	Name          string    `json:"name"`
	Cost          float64   `json:"cost"`
	Quality       float64   `json:"quality"`
	Durability    float64   `json:"durability"`
	FailureChance float64   `json:"failure_chance"`
	Upgrades      []Upgrade `json:"upgrades"`
}

type Upgrade struct {
	Description       string  `json:"description"`
	Cost              float64 `json:"cost"`
	SpeedMultiplier   float64 `json:"speed_multiplier,omitempty"`
	FailureMultiplier float64 `json:"failure_multiplier,omitempty"`
	Purchased         bool    `json:"purchased"`
}

type OwnedAmenity struct {
	Name       string  `json:"name"`
	WeeklyCost float64 `json:"weekly_cost"`
	Vibe       float64 `json:"vibe"`
}

type QuestState struct {
	ID                  string      `json:"id"`
	Completed           bool        `json:"completed"`
	ShowingCompletion   bool        `json:"showing_completion"`
	CompletionStartTick uint64      `json:"completion_start_tick,omitempty"`
	Reward              QuestReward `json:"reward"`
}

type QuestReward struct {
	Cash       float64 `json:"cash"`
	Popularity float64 `json:"popularity"`
}

type DailyStats struct {
	TotalOrders         int     `json:"total_orders"`
	OrdersToday         int     `json:"orders_today"`
	OrdersYesterday     int     `json:"orders_yesterday"`
	OrdersChange        int     `json:"orders_change"`
	RevenueToday        float64 `json:"revenue_today"`
	ExpensesToday       float64 `json:"expenses_today"`
	ProfitToday         float64 `json:"profit_today"`
	ProfitYesterday     float64 `json:"profit_yesterday"`
	PopularityYesterday float64 `json:"popularity_yesterday"`
	PopularityChange    float64 `json:"popularity_change"`
}

type Settings struct {
	TickIntervalMS int      `json:"tick_interval_ms"`
	DismissedTips  []string `json:"dismissed_tips"`
}

// NewState returns a fresh, not yet started cafe: some coffee grounds, a drip
// machine, no staff and no menu. The first Advance bootstraps it.
func NewState(cats *catalogs.Catalogs, tun tuning.Tuning) State {
	st := State{
		Version:        CurrentVersion,
		Tick:           tun.StartTick,
		Cash:           tun.StartingCash,
		Popularity:     tun.StartingPopularity,
		TotalDemand:    100,
		Vibe:           1,
		Staff:          []Employee{},
		Managers:       []Manager{},
		Orders:         []Order{},
		Inventory:      []InventoryItem{},
		Menu:           []MenuItem{},
		OwnedEquipment: []EquipmentInstance{},
		Amenities:      []OwnedAmenity{},
		Quests:         questsFromCatalog(cats),
		Stats:          DailyStats{PopularityYesterday: 50},
		Settings:       Settings{TickIntervalMS: tun.TickIntervalMS, DismissedTips: []string{}},
	}
	if def, ok := cats.Ingredient("Coffee grounds"); ok {
		st.Inventory = append(st.Inventory, InventoryItem{Name: def.Name, Description: def.Description, Quantity: 10})
	}
	if def, ok := cats.EquipmentDef("Drip coffee machine"); ok {
		st.OwnedEquipment = append(st.OwnedEquipment, equipmentFromDef(def))
	}
	return st
}

func questsFromCatalog(cats *catalogs.Catalogs) []QuestState {
	out := make([]QuestState, 0, len(cats.Quests.Items))
	for _, q := range cats.Quests.Items {
		out = append(out, QuestState{ID: q.ID, Reward: QuestReward{Cash: q.Reward.Cash, Popularity: q.Reward.Popularity}})
	}
	return out
}

func equipmentFromDef(def catalogs.EquipmentDef) EquipmentInstance {
	eq := EquipmentInstance{
		Name:          def.Name,
		Cost:          def.Cost,
		Quality:       def.Quality,
		Durability:    def.Durability,
		FailureChance: def.FailureChance,
		Upgrades:      make([]Upgrade, 0, len(def.Upgrades)),
	}
	for _, u := range def.Upgrades {
		eq.Upgrades = append(eq.Upgrades, Upgrade{
			Description:       u.Description,
			Cost:              u.Cost,
			SpeedMultiplier:   u.SpeedMultiplier,
			FailureMultiplier: u.FailureMultiplier,
		})
	}
	return eq
}

func menuItemFromDef(def catalogs.MenuItemDef) MenuItem {
	return MenuItem{
		Name:        def.Name,
		Ingredients: maps.Clone(def.Ingredients),
		Price:       def.Price,
		MarketPrice: def.Price,
		Complexity:  def.Complexity,
		Demand:      def.Demand,
		Requires:    slices.Clone(def.Requires),
	}
}

// Started reports whether the founder has been hired.
func (s *State) Started() bool { return len(s.Staff) > 0 }

// Day is the day number of the current tick. With the default start tick
// the first day is 1; a day boundary tick already belongs to the next day.
func (s *State) Day(dayTicks int) int {
	if dayTicks <= 0 {
		return 0
	}
	return int(s.Tick / uint64(dayTicks))
}

func (s *State) orderIndex(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.Orders {
		if s.Orders[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) equipmentIndex(name string) int {
	for i := range s.OwnedEquipment {
		if s.OwnedEquipment[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *State) ownsAll(names []string) bool {
	for _, n := range names {
		if s.equipmentIndex(n) < 0 {
			return false
		}
	}
	return true
}

func (s *State) inventoryIndex(name string) int {
	for i := range s.Inventory {
		if s.Inventory[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *State) quantity(name string) int {
	if i := s.inventoryIndex(name); i >= 0 {
		return s.Inventory[i].Quantity
	}
	return 0
}

func (s *State) hasIngredients(need map[string]int) bool {
	for name, qty := range need {
		if s.quantity(name) < qty {
			return false
		}
	}
	return true
}

func (s *State) menuIndex(name string) int {
	for i := range s.Menu {
		if s.Menu[i].Name == name {
			return i
		}
	}
	return -1
}

func (s *State) managerIndex(t Trait) int {
	for i := range s.Managers {
		if s.Managers[i].Trait == t {
			return i
		}
	}
	return -1
}

func (s *State) liveOrders() int {
	n := 0
	for _, o := range s.Orders {
		if o.Completion < 100 {
			n++
		}
	}
	return n
}

func (s *State) completedOrders() int {
	n := 0
	for _, o := range s.Orders {
		if o.Completion >= 100 {
			n++
		}
	}
	return n
}

// Clone returns a deep copy; no slice or map is shared with s.
func (s State) Clone() State {
	out := s
	out.Staff = make([]Employee, len(s.Staff))
	for i, e := range s.Staff {
		e.MenuItemProficiency = maps.Clone(e.MenuItemProficiency)
		e.DailyMenuItemsMade = slices.Clone(e.DailyMenuItemsMade)
		out.Staff[i] = e
	}
	out.Managers = slices.Clone(s.Managers)
	out.Orders = make([]Order, len(s.Orders))
	for i, o := range s.Orders {
		o.Items = cloneMenuItems(o.Items)
		o.OriginalItems = cloneMenuItems(o.OriginalItems)
		out.Orders[i] = o
	}
	out.Inventory = slices.Clone(s.Inventory)
	out.Menu = cloneMenuItems(s.Menu)
	out.OwnedEquipment = make([]EquipmentInstance, len(s.OwnedEquipment))
	for i, eq := range s.OwnedEquipment {
		eq.Upgrades = slices.Clone(eq.Upgrades)
		out.OwnedEquipment[i] = eq
	}
	out.Amenities = slices.Clone(s.Amenities)
	out.Quests = slices.Clone(s.Quests)
	out.Settings.DismissedTips = slices.Clone(s.Settings.DismissedTips)
	out.EndOfDayMessages = slices.Clone(s.EndOfDayMessages)
	return out
}

func cloneMenuItems(in []MenuItem) []MenuItem {
	if in == nil {
		return nil
	}
	out := make([]MenuItem, len(in))
	for i, m := range in {
		m.Ingredients = maps.Clone(m.Ingredients)
		m.Requires = slices.Clone(m.Requires)
		out[i] = m
	}
	return out
}
