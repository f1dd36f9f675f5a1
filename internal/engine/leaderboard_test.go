package engine

import (
	"testing"

	"github.com/KudbeeZero/Frontier-Al-sub000/internal/world"
)

func TestLeaderboardOrdering(t *testing.T) {
	s := newTestSim()

	big := addTestPlayer(s, "big")
	addTestParcel(s, 0, 0, world.BiomePlains, 80, big)
	addTestParcel(s, 1, 0, world.BiomePlains, 80, big)

	digger := addTestPlayer(s, "digger")
	addTestParcel(s, 2, 0, world.BiomePlains, 80, digger)
	addTestParcel(s, 3, 0, world.BiomePlains, 80, digger)
	digger.TotalIronMined = 500

	small := addTestPlayer(s, "small")
	addTestParcel(s, 4, 0, world.BiomePlains, 80, small)
	small.AttacksWon = 9

	rows := s.Leaderboard()
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	// Tied on territory, digger's mined total breaks the tie.
	if rows[0].Name != "digger" || rows[1].Name != "big" || rows[2].Name != "small" {
		t.Fatalf("order = %s, %s, %s", rows[0].Name, rows[1].Name, rows[2].Name)
	}
	if rows[0].TotalMined != 500 || rows[0].Territories != 2 {
		t.Fatalf("top row = %+v", rows[0])
	}
	if rows[2].AttacksWon != 9 {
		t.Fatalf("bottom row = %+v", rows[2])
	}
}

func TestLeaderboardNetWinsAndNameTiebreaks(t *testing.T) {
	s := newTestSim()

	zed := addTestPlayer(s, "zed")
	zed.AttacksWon, zed.AttacksLost = 3, 1

	amy := addTestPlayer(s, "amy")
	amy.AttacksWon, amy.AttacksLost = 1, 1

	cal := addTestPlayer(s, "cal")
	cal.AttacksWon, cal.AttacksLost = 2, 2

	rows := s.Leaderboard()
	if rows[0].Name != "zed" {
		t.Fatalf("top = %s, want zed (best net record)", rows[0].Name)
	}
	// amy and cal are tied at net zero; names order them.
	if rows[1].Name != "amy" || rows[2].Name != "cal" {
		t.Fatalf("order = %s, %s", rows[1].Name, rows[2].Name)
	}
}
