package world

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacySave = `{
  "tick": 1500,
  "cash": 420.4,
  "popularity": 30,
  "staff": [{"name": "Sam", "dailyWage": 0, "experience": 300, "currentOrder": 7,
             "menuItemProficiency": {"Drip coffee": 3}, "happiness": 1, "dailyMenuItemsMade": []}],
  "orders": [{"id": 7, "customer": "Alex", "completion": 10, "ticksToComplete": 5, "customerPatience": 500,
              "items": [{"name": "Drip coffee", "ingredients": {"Coffee grounds": 1}, "price": 3, "complexity": 2, "demand": 100}]}],
  "inventory": [{"name": "Coffee grounds", "quantity": 42}],
  "menu": [{"name": "Drip coffee", "ingredients": {"Coffee grounds": 1}, "price": 3, "complexity": 2, "demand": 100,
            "requires": ["Drip coffee machine"]}],
  "ownedEquipment": [{"name": "Espresso machine", "cost": 500, "quality": 90, "durability": 0.1, "failureChance": 0.01,
                      "upgrades": [{"description": "Temperature regulator", "cost": 2000, "speedMultiplier": 1.25,
                                    "failureChance": 0.75, "purchased": true}]}],
  "quests": [{"id": "first week", "completed": false, "showingCompletion": false, "reward": {"cash": 1000, "popularity": 100}}]
}`

func TestMigrate_LegacySave(t *testing.T) {
	e := quietEngine(t)

	st, err := e.Migrate([]byte(legacySave))
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, st.Version)
	assert.Equal(t, uint64(1500), st.Tick)
	assert.Equal(t, 420.0, st.Cash)
	assert.Equal(t, 42, st.quantity("Coffee grounds"))

	require.Len(t, st.Staff, 1)
	assert.Equal(t, "7", st.Staff[0].CurrentOrder)
	assert.Equal(t, 3, st.Staff[0].MenuItemProficiency["Drip coffee"])
	require.Len(t, st.Orders, 1)
	assert.Equal(t, "7", st.Orders[0].ID)
	assert.Equal(t, 5, st.Orders[0].TicksToComplete)
	assert.Equal(t, 3.0, st.Orders[0].Items[0].MarketPrice)

	require.Len(t, st.OwnedEquipment, 1)
	eq := st.OwnedEquipment[0]
	assert.Equal(t, 0.01, eq.FailureChance)
	require.Len(t, eq.Upgrades, 1)
	assert.True(t, eq.Upgrades[0].Purchased)
	assert.Equal(t, 1.25, eq.Upgrades[0].SpeedMultiplier)
	assert.Equal(t, 0.75, eq.Upgrades[0].FailureMultiplier)

	assert.Equal(t, 3.0, st.Menu[0].MarketPrice)
	assert.Equal(t, 100.0, st.TotalDemand)
	assert.Equal(t, 1.0, st.Vibe)

	ids := map[string]int{}
	for _, q := range st.Quests {
		ids[q.ID]++
	}
	assert.Len(t, ids, len(e.Catalogs().Quests.Items))
	assert.Equal(t, 1, ids["first-week"])
	assert.Zero(t, ids["first week"])
}

func TestMigrate_CurrentStateRoundTrips(t *testing.T) {
	e := quietEngine(t)
	st, _ := e.Advance(e.NewState())
	st.Stats.TotalOrders = 12

	raw, err := json.Marshal(st)
	require.NoError(t, err)
	got, err := e.Migrate(raw)
	require.NoError(t, err)

	back, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(back))
}

func TestMigrate_Rejects(t *testing.T) {
	e := quietEngine(t)

	_, err := e.Migrate(nil)
	assert.ErrorIs(t, err, ErrEmptySave)
	_, err = e.Migrate([]byte("null"))
	assert.ErrorIs(t, err, ErrEmptySave)
	_, err = e.Migrate([]byte("{not json"))
	assert.Error(t, err)
	_, err = e.Migrate([]byte(`{"version": 99}`))
	assert.ErrorContains(t, err, "newer")
}

func TestSnakeCase(t *testing.T) {
	assert.Equal(t, "owned_equipment", snakeCase("ownedEquipment"))
	assert.Equal(t, "cash", snakeCase("cash"))
	assert.Equal(t, "Drip coffee", snakeCase("Drip coffee"))
	assert.Equal(t, "already_snake", snakeCase("already_snake"))
}
