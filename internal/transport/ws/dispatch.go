package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"thegrind.cafe/internal/protocol"
	"thegrind.cafe/internal/sim/world"
)

// session holds per-connection state. Only the connection's read loop
// touches it.
type session struct {
	id       string
	client   string
	maxQueue int

	employees []world.Employee
	managers  []world.Manager

	windowStart time.Time
	windowCount int
}

func (s *Server) dispatch(ctx context.Context, sess *session, act protocol.ActionMsg) protocol.ResultMsg {
	p := act.Params
	var op world.Op

	switch act.Action {
	case protocol.ActStartGame:
		op = func(e *world.Engine, st *world.State) bool { return e.StartGame(st, p.Name) }
	case protocol.ActPurchaseItem:
		op = func(e *world.Engine, st *world.State) bool {
			return e.PurchaseItem(st, p.Name, p.Quantity, p.Cost, p.Description)
		}
	case protocol.ActBuyIngredient:
		op = func(e *world.Engine, st *world.State) bool { return e.BuyIngredient(st, p.Name, p.Packages) }
	case protocol.ActRepairEquipment:
		op = func(e *world.Engine, st *world.State) bool { return e.RepairEquipment(st, p.Name) }
	case protocol.ActUpdatePrice:
		op = func(e *world.Engine, st *world.State) bool { return e.UpdateMenuItemPrice(st, p.Name, p.Price) }
	case protocol.ActSearchEmployees:
		var found []world.Employee
		op = func(e *world.Engine, _ *world.State) bool {
			found = e.SearchForEmployees(p.Count)
			return true
		}
		res := s.apply(ctx, act.ID, op)
		if res.OK {
			sess.employees = found
			res.Candidates = mustRaw(found)
		}
		return res
	case protocol.ActSearchManagers:
		var found []world.Manager
		op = func(e *world.Engine, _ *world.State) bool {
			found = e.SearchForManagers(p.Count)
			return true
		}
		res := s.apply(ctx, act.ID, op)
		if res.OK {
			sess.managers = found
			res.Candidates = mustRaw(found)
		}
		return res
	case protocol.ActHireEmployee:
		if p.Index >= len(sess.employees) {
			return protocol.NewResult(act.ID, false, protocol.ErrNoCandidate, "no such employee candidate; search first")
		}
		c := sess.employees[p.Index]
		res := s.apply(ctx, act.ID, func(e *world.Engine, st *world.State) bool { return e.HireEmployee(st, c) })
		if res.OK {
			sess.employees = append(sess.employees[:p.Index:p.Index], sess.employees[p.Index+1:]...)
		}
		return res
	case protocol.ActHireManager:
		if p.Index >= len(sess.managers) {
			return protocol.NewResult(act.ID, false, protocol.ErrNoCandidate, "no such manager candidate; search first")
		}
		c := sess.managers[p.Index]
		res := s.apply(ctx, act.ID, func(e *world.Engine, st *world.State) bool { return e.HireManager(st, c) })
		if res.OK {
			sess.managers = append(sess.managers[:p.Index:p.Index], sess.managers[p.Index+1:]...)
		}
		return res
	case protocol.ActPurchaseEquipment:
		op = func(e *world.Engine, st *world.State) bool { return e.PurchaseEquipment(st, p.Name) }
	case protocol.ActPurchaseUpgrade:
		op = func(e *world.Engine, st *world.State) bool { return e.PurchaseUpgrade(st, p.Name, p.Index) }
	case protocol.ActAddMenuItem:
		op = func(e *world.Engine, st *world.State) bool { return e.AddMenuItem(st, p.Name) }
	case protocol.ActRemoveMenuItem:
		op = func(e *world.Engine, st *world.State) bool { return e.RemoveMenuItem(st, p.Name) }
	case protocol.ActPurchaseAmenity:
		op = func(e *world.Engine, st *world.State) bool { return e.PurchaseAmenity(st, p.Name) }
	case protocol.ActDismissEndOfDay:
		op = func(e *world.Engine, st *world.State) bool { return e.DismissEndOfDay(st) }
	case protocol.ActSetPaused:
		op = func(e *world.Engine, st *world.State) bool { return e.SetPaused(st, p.Paused) }
	case protocol.ActDismissTip:
		op = func(e *world.Engine, st *world.State) bool { return e.DismissTip(st, p.Tip) }
	case protocol.ActSetTickInterval:
		if err := s.world.SetTickInterval(time.Duration(p.TickIntervalMS) * time.Millisecond); err != nil {
			return protocol.NewResult(act.ID, false, protocol.ErrBadRequest, err.Error())
		}
		return protocol.NewResult(act.ID, true, "", "")
	default:
		return protocol.NewResult(act.ID, false, protocol.ErrBadRequest, "unknown action")
	}

	return s.apply(ctx, act.ID, op)
}

func (s *Server) apply(ctx context.Context, id string, op world.Op) protocol.ResultMsg {
	ctx, cancel := context.WithTimeout(ctx, applyTimeout)
	defer cancel()
	ok, err := s.world.Apply(ctx, op)
	switch {
	case errors.Is(err, world.ErrStopped):
		return protocol.NewResult(id, false, protocol.ErrStopped, "cafe is shutting down")
	case err != nil:
		return protocol.NewResult(id, false, protocol.ErrInternal, err.Error())
	case !ok:
		return protocol.NewResult(id, false, protocol.ErrRejected, "rejected")
	}
	return protocol.NewResult(id, true, "", "")
}

func mustRaw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
