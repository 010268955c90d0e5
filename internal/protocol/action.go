package protocol

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Player actions carried by ACTION messages.
const (
	ActStartGame         = "START_GAME"
	ActPurchaseItem      = "PURCHASE_ITEM"
	ActBuyIngredient     = "BUY_INGREDIENT"
	ActRepairEquipment   = "REPAIR_EQUIPMENT"
	ActUpdatePrice       = "UPDATE_PRICE"
	ActSearchEmployees   = "SEARCH_EMPLOYEES"
	ActHireEmployee      = "HIRE_EMPLOYEE"
	ActSearchManagers    = "SEARCH_MANAGERS"
	ActHireManager       = "HIRE_MANAGER"
	ActPurchaseEquipment = "PURCHASE_EQUIPMENT"
	ActPurchaseUpgrade   = "PURCHASE_UPGRADE"
	ActAddMenuItem       = "ADD_MENU_ITEM"
	ActRemoveMenuItem    = "REMOVE_MENU_ITEM"
	ActPurchaseAmenity   = "PURCHASE_AMENITY"
	ActDismissEndOfDay   = "DISMISS_END_OF_DAY"
	ActSetPaused         = "SET_PAUSED"
	ActDismissTip        = "DISMISS_TIP"
	ActSetTickInterval   = "SET_TICK_INTERVAL"
)

// ACTION (client -> server)
type ActionMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	ID              string       `json:"id"`
	Action          string       `json:"action"`
	Params          ActionParams `json:"params"`
}

// ActionParams is the union of every action's parameters; the schema
// decides which are required for which action.
type ActionParams struct {
	Name           string  `json:"name,omitempty"`
	Description    string  `json:"description,omitempty"`
	Quantity       int     `json:"quantity,omitempty"`
	Packages       int     `json:"packages,omitempty"`
	Cost           float64 `json:"cost,omitempty"`
	Price          float64 `json:"price,omitempty"`
	Index          int     `json:"index"`
	Count          int     `json:"count,omitempty"`
	Paused         bool    `json:"paused"`
	Tip            string  `json:"tip,omitempty"`
	TickIntervalMS int     `json:"tick_interval_ms,omitempty"`
}

//go:embed schemas/action.schema.json
var actionSchemaJSON string

// ActionValidator checks raw ACTION messages against the embedded schema.
type ActionValidator struct {
	schema *jsonschema.Schema
}

func NewActionValidator() (*ActionValidator, error) {
	s, err := jsonschema.CompileString("action.schema.json", actionSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("action schema: %w", err)
	}
	return &ActionValidator{schema: s}, nil
}

// Decode validates raw and decodes it. The error text is safe to send back
// to the client.
func (v *ActionValidator) Decode(raw []byte) (ActionMsg, error) {
	var act ActionMsg
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return act, fmt.Errorf("bad json: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return act, fmt.Errorf("invalid action: %s", firstLine(err.Error()))
	}
	if err := json.Unmarshal(raw, &act); err != nil {
		return act, fmt.Errorf("bad json: %w", err)
	}
	return act, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
