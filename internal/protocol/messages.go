package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	// MaxQueue bounds buffered RESULT messages. STATE pushes are latest-wins.
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	SaveID          string      `json:"save_id"`
	Params          CafeParams  `json:"params"`
	Catalogs        []DigestRef `json:"catalogs"`
}

type CafeParams struct {
	DayTicks       int `json:"day_ticks"`
	TickIntervalMS int `json:"tick_interval_ms"`
}

type DigestRef struct {
	Name   string `json:"name"`
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// STATE (server -> client): the settled state after a tick or an action.
// State is the simulation's own JSON encoding.
type StateMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Tick            uint64          `json:"tick"`
	State           json.RawMessage `json:"state"`
}

// RESULT (server -> client) answers one ACTION by id.
type ResultMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ID              string          `json:"id"`
	OK              bool            `json:"ok"`
	Code            string          `json:"code,omitempty"`
	Message         string          `json:"message,omitempty"`
	Tick            uint64          `json:"tick,omitempty"`
	Candidates      json.RawMessage `json:"candidates,omitempty"`
}

func NewResult(id string, ok bool, code, message string) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, ID: id, OK: ok, Code: code, Message: message}
}
