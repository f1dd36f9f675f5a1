package engine

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"lukechampine.com/blake3"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/economy"
)

// mintAvatarLocked mints a commander avatar of the requested tier. The
// first commander a player mints becomes active automatically.
func (s *Sim) mintAvatarLocked(act MintAvatarAction, now time.Time) (*Result, error) {
	player, err := s.playerLocked(act.ActorID)
	if err != nil {
		return nil, err
	}

	spec, ok := economy.CommanderSpecFor(act.Tier)
	if !ok {
		return nil, fmt.Errorf("unknown commander tier %d: %w", act.Tier, ErrInvalidParameters)
	}
	if len(act.Name) > 64 {
		return nil, fmt.Errorf("commander name too long: %w", ErrInvalidParameters)
	}
	if player.FrontierBalance < spec.MintCost {
		return nil, fmt.Errorf("tier %d avatar costs %.0f frontier: %w",
			act.Tier, spec.MintCost, ErrInsufficientResources)
	}

	name := act.Name
	if name == "" {
		name = spec.Title
	}

	player.spendFrontier(spec.MintCost)

	c := Commander{
		ID:           uuid.NewString(),
		Name:         name,
		Tier:         act.Tier,
		Title:        spec.Title,
		AttackBonus:  spec.AttackBonus,
		DefenseBonus: spec.DefenseBonus,
		MintedAt:     now,
	}
	player.Commanders = append(player.Commanders, c)
	if player.ActiveCommanderID == "" {
		player.ActiveCommanderID = c.ID
	}

	s.pushEventLocked(Event{
		Type:    EventMintAvatar,
		ActorID: player.ID,
		Description: fmt.Sprintf("%s minted %s %q (tier %d)",
			player.Name, spec.Title, name, act.Tier),
	})

	return &Result{
		Player:    player.clone(),
		Commander: &c,
	}, nil
}

// switchCommanderLocked changes the active commander.
func (s *Sim) switchCommanderLocked(act SwitchCommanderAction, now time.Time) (*Result, error) {
	player, err := s.playerLocked(act.ActorID)
	if err != nil {
		return nil, err
	}

	var target *Commander
	for i := range player.Commanders {
		if player.Commanders[i].ID == act.CommanderID {
			target = &player.Commanders[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("commander %s: %w", act.CommanderID, ErrNotFound)
	}

	player.ActiveCommanderID = target.ID

	s.pushEventLocked(Event{
		Type:        EventSwitchCommander,
		ActorID:     player.ID,
		Description: fmt.Sprintf("%s activated commander %q", player.Name, target.Name),
	})

	c := *target
	return &Result{
		Player:    player.clone(),
		Commander: &c,
	}, nil
}

// deployDroneLocked launches a recon drone toward a parcel. The sweep
// returns it after the survey duration with discovered resources.
func (s *Sim) deployDroneLocked(act DeployDroneAction, now time.Time) (*Result, error) {
	player, err := s.playerLocked(act.ActorID)
	if err != nil {
		return nil, err
	}
	parcel, err := s.parcelLocked(act.ParcelID)
	if err != nil {
		return nil, err
	}

	if player.ActiveDroneCount() >= economy.MaxActiveDrones {
		return nil, fmt.Errorf("max %d drones out at once: %w",
			economy.MaxActiveDrones, ErrInvalidState)
	}
	if player.FrontierBalance < economy.DroneCost {
		return nil, fmt.Errorf("drone costs %.0f frontier: %w",
			economy.DroneCost, ErrInsufficientResources)
	}

	player.spendFrontier(economy.DroneCost)

	d := ReconDrone{
		ID:             uuid.NewString(),
		TargetParcelID: parcel.ID,
		DeployedAt:     now,
		Status:         DroneSurveying,
	}
	player.Drones = append(player.Drones, d)

	s.pushEventLocked(Event{
		Type:        EventDeployDrone,
		ActorID:     player.ID,
		ParcelID:    parcel.ID,
		Description: fmt.Sprintf("%s deployed a recon drone to %s", player.Name, parcel.ID),
	})

	return &Result{
		Player: player.clone(),
		Drone:  &d,
	}, nil
}

// AdvanceDrones returns every drone whose survey has elapsed, filling in
// discovered resources. Returns the number that came back.
func (s *Sim) AdvanceDrones(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	playerIDs := make([]string, 0, len(s.Players))
	for id := range s.Players {
		playerIDs = append(playerIDs, id)
	}
	sort.Strings(playerIDs)

	returned := 0
	for _, pid := range playerIDs {
		player := s.Players[pid]
		for i := range player.Drones {
			d := &player.Drones[i]
			if d.Status != DroneSurveying {
				continue
			}
			if now.Sub(d.DeployedAt) < economy.DroneSurveyDuration {
				continue
			}

			richness := 0
			if parcel := s.Grid.Get(d.TargetParcelID); parcel != nil {
				richness = parcel.Richness
			}
			d.DiscoveredIron, d.DiscoveredFuel, d.DiscoveredCrystal =
				droneDiscovery(d.ID, d.TargetParcelID, richness)
			d.Status = DroneReturned
			returned++

			s.pushEventLocked(Event{
				Type:     EventDroneReturned,
				ActorID:  player.ID,
				ParcelID: d.TargetParcelID,
				Description: fmt.Sprintf("%s's drone returned from %s: %d iron, %d fuel, %d crystal sighted",
					player.Name, d.TargetParcelID, d.DiscoveredIron, d.DiscoveredFuel, d.DiscoveredCrystal),
			})
		}
	}
	return returned
}

// droneDiscovery derives survey findings from a hash of the drone and
// parcel ids, scaled by parcel richness. Reproducible across restarts.
func droneDiscovery(droneID, parcelID string, richness int) (iron, fuel, crystal int) {
	sum := blake3.Sum256([]byte(fmt.Sprintf("%s|%s", droneID, parcelID)))
	n0 := float64(binary.BigEndian.Uint64(sum[0:8])) / float64(math.MaxUint64)
	n1 := float64(binary.BigEndian.Uint64(sum[8:16])) / float64(math.MaxUint64)
	n2 := float64(binary.BigEndian.Uint64(sum[16:24])) / float64(math.MaxUint64)

	r := float64(richness)
	return int(n0 * r * 0.5), int(n1 * r * 0.3), int(n2 * r * 0.1)
}

// bindWalletLocked attaches a wallet address to the player, granting the
// one-time welcome bonus on first binding.
func (s *Sim) bindWalletLocked(act BindWalletAction, now time.Time) (*Result, error) {
	player, err := s.playerLocked(act.ActorID)
	if err != nil {
		return nil, err
	}
	if act.Address == "" || len(act.Address) > 128 {
		return nil, fmt.Errorf("malformed wallet address: %w", ErrInvalidParameters)
	}
	if player.WalletAddress == act.Address {
		return &Result{Player: player.clone()}, nil
	}
	if player.WalletAddress != "" {
		return nil, fmt.Errorf("wallet already bound: %w", ErrInvalidState)
	}

	player.WalletAddress = act.Address

	if !player.WelcomeBonusReceived {
		player.Iron += economy.WelcomeIron
		player.Fuel += economy.WelcomeFuel
		player.Crystal += economy.WelcomeCrystal
		player.FrontierBalance += economy.WelcomeFrontier
		player.FrontierEarned += economy.WelcomeFrontier
		player.WelcomeBonusReceived = true
	}

	s.pushEventLocked(Event{
		Type:        EventWalletBound,
		ActorID:     player.ID,
		Description: fmt.Sprintf("%s linked a wallet", player.Name),
	})

	return &Result{Player: player.clone()}, nil
}
