package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"thegrind.cafe/internal/protocol"
	"thegrind.cafe/internal/sim/world"
)

var (
	url      string
	name     string
	lowStock int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "bot",
		Short:        "Autopilot that keeps the cafe stocked and dismisses day summaries",
		RunE:         runBot,
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVar(&url, "url", "ws://localhost:8080/v1/ws", "ws url")
	rootCmd.Flags().StringVar(&name, "name", "bot", "client name")
	rootCmd.Flags().IntVar(&lowStock, "low", 20, "restock an ingredient when fewer units remain")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "bot", ReportTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      name,
		MaxQueue:        8,
	}
	if err := conn.WriteJSON(hello); err != nil {
		return fmt.Errorf("send HELLO: %w", err)
	}

	p := newPilot(lowStock)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Info("welcome", "session", w.SessionID, "save", w.SaveID, "day_ticks", w.Params.DayTicks)

		case protocol.TypeState:
			var sm protocol.StateMsg
			if err := json.Unmarshal(msg, &sm); err != nil {
				continue
			}
			var st world.State
			if err := json.Unmarshal(sm.State, &st); err != nil {
				logger.Warn("bad state", "err", err)
				continue
			}
			for _, act := range p.decide(st) {
				logger.Debug("act", "action", act.Action, "name", act.Params.Name)
				if err := conn.WriteJSON(act); err != nil {
					return err
				}
			}

		case protocol.TypeResult:
			var res protocol.ResultMsg
			if err := json.Unmarshal(msg, &res); err != nil {
				continue
			}
			p.done(res.ID)
			if !res.OK {
				logger.Warn("action failed", "id", res.ID, "code", res.Code, "msg", res.Message)
			}
		}
	}
}

// pilot decides actions from pushed states. At most one action per key is in
// flight; a RESULT frees the key.
type pilot struct {
	low      int
	seq      int
	inflight map[string]string // action id -> key
}

func newPilot(low int) *pilot {
	return &pilot{low: low, inflight: map[string]string{}}
}

func (p *pilot) busy(key string) bool {
	for _, k := range p.inflight {
		if k == key {
			return true
		}
	}
	return false
}

func (p *pilot) next(key, action string, params protocol.ActionParams) protocol.ActionMsg {
	p.seq++
	id := fmt.Sprintf("bot-%d", p.seq)
	p.inflight[id] = key
	return protocol.ActionMsg{
		Type:            protocol.TypeAction,
		ProtocolVersion: protocol.Version,
		ID:              id,
		Action:          action,
		Params:          params,
	}
}

func (p *pilot) done(id string) { delete(p.inflight, id) }

func (p *pilot) decide(st world.State) []protocol.ActionMsg {
	var out []protocol.ActionMsg
	if st.ShowEndOfDay {
		if !p.busy("dismiss") {
			out = append(out, p.next("dismiss", protocol.ActDismissEndOfDay, protocol.ActionParams{}))
		}
		return out
	}

	needed := map[string]bool{}
	for _, m := range st.Menu {
		for ing := range m.Ingredients {
			needed[ing] = true
		}
	}
	have := map[string]int{}
	for _, inv := range st.Inventory {
		have[inv.Name] = inv.Quantity
	}
	names := make([]string, 0, len(needed))
	for n := range needed {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		key := "buy:" + n
		if have[n] < p.low && !p.busy(key) {
			out = append(out, p.next(key, protocol.ActBuyIngredient, protocol.ActionParams{Name: n, Packages: 1}))
		}
	}
	return out
}
