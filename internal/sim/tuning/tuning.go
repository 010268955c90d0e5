package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickIntervalMS     int    `yaml:"tick_interval_ms" json:"tick_interval_ms"`
	DayTicks           int    `yaml:"day_ticks" json:"day_ticks"`
	StartTick          uint64 `yaml:"start_tick" json:"start_tick"`
	SnapshotEveryTicks int    `yaml:"snapshot_every_ticks" json:"snapshot_every_ticks"`

	StartingCash       float64 `yaml:"starting_cash" json:"starting_cash"`
	StartingPopularity float64 `yaml:"starting_popularity" json:"starting_popularity"`
	FounderName        string  `yaml:"founder_name" json:"founder_name"`

	Arrival    Arrival    `yaml:"arrival" json:"arrival"`
	Settlement Settlement `yaml:"settlement" json:"settlement"`
	Restock    Restock    `yaml:"restock" json:"restock"`

	QuestDelayTicks uint64 `yaml:"quest_delay_ticks" json:"quest_delay_ticks"`
}

type Arrival struct {
	BaseOrderChance float64 `yaml:"base_order_chance" json:"base_order_chance"`
	LullOrderChance float64 `yaml:"lull_order_chance" json:"lull_order_chance"`
	MinLiveOrders   int     `yaml:"min_live_orders" json:"min_live_orders"`
	DemandFloor     float64 `yaml:"demand_floor" json:"demand_floor"`
	DemandCeiling   float64 `yaml:"demand_ceiling" json:"demand_ceiling"`
}

type Settlement struct {
	SpoilageAfterTick uint64  `yaml:"spoilage_after_tick" json:"spoilage_after_tick"`
	SpoilageRate      float64 `yaml:"spoilage_rate" json:"spoilage_rate"`
	ArchiveEveryDays  int     `yaml:"archive_every_days" json:"archive_every_days"`
}

type Restock struct {
	Floor           int     `yaml:"floor" json:"floor"`
	SlowestTicks    float64 `yaml:"slowest_ticks" json:"slowest_ticks"`
	FastestTicks    float64 `yaml:"fastest_ticks" json:"fastest_ticks"`
	MaxXPGainPerBuy int     `yaml:"max_xp_gain_per_buy" json:"max_xp_gain_per_buy"`
}

func Defaults() Tuning {
	return Tuning{
		TickIntervalMS:     200,
		DayTicks:           1000,
		StartTick:          1000,
		SnapshotEveryTicks: 500,
		StartingCash:       500,
		StartingPopularity: 25,
		FounderName:        "Owner",
		Arrival: Arrival{
			BaseOrderChance: 0.1,
			LullOrderChance: 0.2,
			MinLiveOrders:   3,
			DemandFloor:     0.5,
			DemandCeiling:   3.0,
		},
		Settlement: Settlement{
			SpoilageAfterTick: 5000,
			SpoilageRate:      0.1,
			ArchiveEveryDays:  7,
		},
		Restock: Restock{
			Floor:           10,
			SlowestTicks:    200,
			FastestTicks:    20,
			MaxXPGainPerBuy: 2,
		},
		QuestDelayTicks: 30,
	}
}

// Load overlays the yaml file on Defaults; keys missing from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickIntervalMS <= 0 {
		return fmt.Errorf("tick_interval_ms must be > 0")
	}
	if t.DayTicks <= 0 {
		return fmt.Errorf("day_ticks must be > 0")
	}
	if t.Arrival.DemandFloor > t.Arrival.DemandCeiling {
		return fmt.Errorf("arrival.demand_floor > arrival.demand_ceiling")
	}
	if t.Restock.FastestTicks <= 0 || t.Restock.SlowestTicks < t.Restock.FastestTicks {
		return fmt.Errorf("restock: need 0 < fastest_ticks <= slowest_ticks")
	}
	if t.Settlement.SpoilageRate < 0 || t.Settlement.SpoilageRate > 1 {
		return fmt.Errorf("settlement.spoilage_rate must be within [0,1]")
	}
	return nil
}
