package engine

import "sort"

// LeaderboardRow is one ranked faction summary.
type LeaderboardRow struct {
	PlayerID        string  `json:"player_id"`
	Name            string  `json:"name"`
	IsAI            bool    `json:"is_ai"`
	Territories     int     `json:"territories"`
	TotalMined      int     `json:"total_mined"`
	AttacksWon      int     `json:"attacks_won"`
	AttacksLost     int     `json:"attacks_lost"`
	FrontierBalance float64 `json:"frontier_balance"`
}

// Leaderboard ranks every faction by territory, then mined totals, then
// net battle record.
func (s *Sim) Leaderboard() []LeaderboardRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]LeaderboardRow, 0, len(s.Players))
	for _, p := range s.Players {
		rows = append(rows, LeaderboardRow{
			PlayerID:        p.ID,
			Name:            p.Name,
			IsAI:            p.IsAI,
			Territories:     len(p.ParcelIDs),
			TotalMined:      p.TotalIronMined + p.TotalFuelMined + p.TotalCrystalMined,
			AttacksWon:      p.AttacksWon,
			AttacksLost:     p.AttacksLost,
			FrontierBalance: p.FrontierBalance,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Territories != b.Territories {
			return a.Territories > b.Territories
		}
		if a.TotalMined != b.TotalMined {
			return a.TotalMined > b.TotalMined
		}
		netA, netB := a.AttacksWon-a.AttacksLost, b.AttacksWon-b.AttacksLost
		if netA != netB {
			return netA > netB
		}
		return a.Name < b.Name
	})
	return rows
}
