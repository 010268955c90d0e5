package world

import (
	"math"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"thegrind.cafe/internal/sim/world/logic/mathx"
)

// Player operations. Each applies to a settled State between ticks and
// reports success; insufficient cash and unknown targets are the usual
// reasons for false. A false return leaves st unchanged.

// CleanName trims and NFC-normalises a player-entered name.
func CleanName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// StartGame names the founder and opens the cafe if it is not open yet.
func (e *Engine) StartGame(st *State, name string) bool {
	if st.Started() {
		return false
	}
	st.PlayerName = CleanName(name)
	var out signals
	e.bootstrap(st, &out)
	return true
}

func (e *Engine) PurchaseItem(st *State, name string, qty int, cost float64, description string) bool {
	name = strings.TrimSpace(name)
	if name == "" || qty <= 0 || cost < 0 || st.Cash < cost {
		return false
	}
	st.Cash -= cost
	st.Stats.ExpensesToday += cost
	if i := st.inventoryIndex(name); i >= 0 {
		st.Inventory[i].Quantity += qty
		return true
	}
	st.Inventory = append(st.Inventory, InventoryItem{Name: name, Description: description, Quantity: qty})
	return true
}

// BuyIngredient buys packages of a catalog ingredient at catalog price.
func (e *Engine) BuyIngredient(st *State, name string, packages int) bool {
	def, ok := e.cats.Ingredient(name)
	if !ok || packages <= 0 {
		return false
	}
	return e.PurchaseItem(st, def.Name, packages*def.Quantity, float64(packages)*def.Cost, def.Description)
}

// RepairCost is what restoring an owned machine to full quality costs.
func RepairCost(eq EquipmentInstance) float64 {
	return mathx.RoundCents(eq.Cost / 8)
}

func (e *Engine) RepairEquipment(st *State, name string) bool {
	i := st.equipmentIndex(name)
	if i < 0 {
		return false
	}
	cost := RepairCost(st.OwnedEquipment[i])
	if st.Cash < cost {
		return false
	}
	st.Cash -= cost
	st.Stats.ExpensesToday += cost
	st.OwnedEquipment[i].Quality = 100
	return true
}

func (e *Engine) UpdateMenuItemPrice(st *State, name string, price float64) bool {
	i := st.menuIndex(name)
	if i < 0 || price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return false
	}
	st.Menu[i].Price = mathx.RoundCents(price)
	st.TotalDemand = TotalDemand(st.Menu)
	return true
}

// HireEmployee takes on a candidate for a signing fee of one daily wage.
func (e *Engine) HireEmployee(st *State, c Employee) bool {
	name := CleanName(c.Name)
	if name == "" || c.DailyWage < 0 || st.Cash < c.DailyWage {
		return false
	}
	st.Cash -= c.DailyWage
	st.Stats.ExpensesToday += c.DailyWage
	c.Name = name
	c.CurrentOrder = ""
	if c.MenuItemProficiency == nil {
		c.MenuItemProficiency = map[string]int{}
	}
	c.DailyMenuItemsMade = []string{}
	if c.Happiness == 0 {
		c.Happiness = 1
	}
	st.Staff = append(st.Staff, c)
	return true
}

// HireManager allows one manager per trait; the fee is one daily wage.
func (e *Engine) HireManager(st *State, m Manager) bool {
	name := CleanName(m.Name)
	if name == "" || !m.Trait.Valid() || st.managerIndex(m.Trait) >= 0 {
		return false
	}
	if m.DailyWage < 0 || st.Cash < m.DailyWage {
		return false
	}
	st.Cash -= m.DailyWage
	st.Stats.ExpensesToday += m.DailyWage
	m.Name = name
	if m.Happiness == 0 {
		m.Happiness = 1
	}
	st.Managers = append(st.Managers, m)
	return true
}

// SearchForEmployees draws n hiring candidates. Wages grow with experience on
// a 1.5 power curve on top of a 50-80 base.
func (e *Engine) SearchForEmployees(n int) []Employee {
	out := make([]Employee, 0, max(n, 0))
	for i := 0; i < n; i++ {
		exp := min(1000, e.rng.IntN(1000)+10)
		base := 50 + e.rng.IntN(31)
		bonus := math.Floor(math.Pow(float64(exp)/1000, 1.5) * 250)
		out = append(out, Employee{
			Name:                e.candidateName(),
			DailyWage:           float64(base) + bonus,
			Experience:          float64(exp),
			MenuItemProficiency: map[string]int{},
			Happiness:           e.rng.Float64()*1.2 + 0.4,
			DailyMenuItemsMade:  []string{},
		})
	}
	return out
}

var traits = []Trait{TraitGeneral, TraitFinancial, TraitInventory}

// SearchForManagers draws n manager candidates with a random trait. Managers
// cost more than staff at the same experience.
func (e *Engine) SearchForManagers(n int) []Manager {
	out := make([]Manager, 0, max(n, 0))
	for i := 0; i < n; i++ {
		exp := e.rng.IntN(1001)
		base := 80 + e.rng.IntN(41)
		bonus := math.Floor(math.Pow(float64(exp)/1000, 1.5) * 300)
		out = append(out, Manager{
			Name:       e.candidateName(),
			DailyWage:  float64(base) + bonus,
			Experience: float64(exp),
			Happiness:  1,
			Trait:      traits[e.rng.IntN(len(traits))],
		})
	}
	return out
}

func (e *Engine) candidateName() string {
	return customerNames[e.rng.IntN(len(customerNames))] + " " + lastNames[e.rng.IntN(len(lastNames))]
}

func (e *Engine) PurchaseEquipment(st *State, name string) bool {
	def, ok := e.cats.EquipmentDef(name)
	if !ok || st.equipmentIndex(def.Name) >= 0 || st.Cash < def.Cost {
		return false
	}
	st.Cash -= def.Cost
	st.Stats.ExpensesToday += def.Cost
	st.OwnedEquipment = append(st.OwnedEquipment, equipmentFromDef(def))
	return true
}

func (e *Engine) PurchaseUpgrade(st *State, equipment string, index int) bool {
	qi := st.equipmentIndex(equipment)
	if qi < 0 {
		return false
	}
	eq := &st.OwnedEquipment[qi]
	if index < 0 || index >= len(eq.Upgrades) {
		return false
	}
	up := &eq.Upgrades[index]
	if up.Purchased || st.Cash < up.Cost {
		return false
	}
	st.Cash -= up.Cost
	st.Stats.ExpensesToday += up.Cost
	up.Purchased = true
	return true
}

func (e *Engine) AddMenuItem(st *State, name string) bool {
	def, ok := e.cats.MenuItem(name)
	if !ok || st.menuIndex(def.Name) >= 0 {
		return false
	}
	st.Menu = append(st.Menu, menuItemFromDef(def))
	st.TotalDemand = TotalDemand(st.Menu)
	return true
}

// RemoveMenuItem refuses to empty the menu.
func (e *Engine) RemoveMenuItem(st *State, name string) bool {
	i := st.menuIndex(name)
	if i < 0 || len(st.Menu) <= 1 {
		return false
	}
	st.Menu = slices.Delete(st.Menu, i, i+1)
	st.TotalDemand = TotalDemand(st.Menu)
	return true
}

func (e *Engine) PurchaseAmenity(st *State, name string) bool {
	def, ok := e.cats.Amenity(name)
	if !ok || st.Cash < def.Cost {
		return false
	}
	for _, a := range st.Amenities {
		if a.Name == def.Name {
			return false
		}
	}
	st.Cash -= def.Cost
	st.Stats.ExpensesToday += def.Cost
	st.Amenities = append(st.Amenities, OwnedAmenity{Name: def.Name, WeeklyCost: def.WeeklyCost, Vibe: def.Vibe})
	st.Vibe += def.Vibe
	return true
}

// DismissEndOfDay clears the summary gate so ticks resume.
func (e *Engine) DismissEndOfDay(st *State) bool {
	if !st.ShowEndOfDay {
		return false
	}
	st.ShowEndOfDay = false
	st.EndOfDayMessages = nil
	return true
}

func (e *Engine) SetPaused(st *State, paused bool) bool {
	st.Paused = paused
	return true
}

// DismissTip clears the current tip and remembers it was dismissed.
func (e *Engine) DismissTip(st *State, tip string) bool {
	if tip == "" {
		return false
	}
	if !slices.Contains(st.Settings.DismissedTips, tip) {
		st.Settings.DismissedTips = append(st.Settings.DismissedTips, tip)
	}
	if st.Tip == tip {
		st.Tip = ""
	}
	return true
}
