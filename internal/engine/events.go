package engine

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the engine.
const (
	EventPlayerJoined    = "player_joined"
	EventWalletBound     = "wallet_bound"
	EventMine            = "mine"
	EventBuild           = "build"
	EventPurchase        = "purchase"
	EventCollect         = "collect"
	EventClaim           = "claim"
	EventMintAvatar      = "mint_avatar"
	EventSwitchCommander = "switch_commander"
	EventDeployDrone     = "deploy_drone"
	EventDroneReturned   = "drone_returned"
	EventSpecialAttack   = "special_attack"
	EventAttackLaunched  = "attack_launched"
	EventBattleResolved  = "battle_resolved"
)

// Event is one append-only activity log entry. Observational only, never
// authoritative state.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ActorID     string    `json:"actor_id,omitempty"`
	ParcelID    string    `json:"parcel_id,omitempty"`
	BattleID    string    `json:"battle_id,omitempty"`
	Description string    `json:"description"`
	Ts          time.Time `json:"ts"`
}

// maxEvents caps the in-memory event log; older entries are trimmed.
const maxEvents = 1000

// pushEventLocked appends an event, trims the log, and fans it out to
// stream subscribers without blocking. Caller holds the sim lock.
func (s *Sim) pushEventLocked(e Event) {
	e.ID = uuid.NewString()
	if e.Ts.IsZero() {
		e.Ts = s.nowFn()
	}

	s.Events = append(s.Events, e)
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}

	for _, ch := range s.subscribers {
		select {
		case ch <- e:
		default:
			// Slow subscriber: drop rather than stall the engine.
		}
	}
}

// Subscribe registers a live event channel and returns its id for later
// removal. The channel is buffered; events are dropped for subscribers
// that fall behind.
func (s *Sim) Subscribe() (int, <-chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	ch := make(chan Event, 64)
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a live event channel.
func (s *Sim) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subscribers[id]; ok {
		delete(s.subscribers, id)
		close(ch)
	}
}

// RecentEvents returns up to limit of the newest events, oldest first.
func (s *Sim) RecentEvents(limit int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.Events) {
		limit = len(s.Events)
	}
	out := make([]Event, limit)
	copy(out, s.Events[len(s.Events)-limit:])
	return out
}
