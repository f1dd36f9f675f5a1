// Procedural world generation using layered simplex noise.
// Elevation, moisture, and heat fields derive each parcel's biome; a
// fourth field plus a core-distance bias derives richness. Runs once at
// world creation; the grid is persisted from then on.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Radius int // hex grid radius (22 -> 1519 parcels)
	Seed   int64
	// ForSaleRatio is the fraction of parcels listed with a purchase
	// price at creation. The rest start unclaimed and unpriced, takeable
	// only by force.
	ForSaleRatio float64
}

// DefaultGenConfig returns the standard world size.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:       22,
		Seed:         0,
		ForSaleRatio: 0.35,
	}
}

// SmallTestConfig returns a tiny deterministic world for tests.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Radius:       5,
		Seed:         42,
		ForSaleRatio: 0.5,
	}
}

// Generate creates the full parcel grid. Deterministic for a given seed.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)
	heatNoise := opensimplex.NewNormalized(seed + 2)
	richNoise := opensimplex.NewNormalized(seed + 3)

	saleRng := rand.New(rand.NewSource(seed + 100))

	g := NewGrid(cfg.Radius)

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			coord := HexCoord{Q: q, R: r}
			if Distance(coord, HexCoord{}) > cfg.Radius {
				continue
			}

			// Hex axial -> cartesian for noise sampling.
			x := float64(q) + float64(r)*0.5
			y := float64(r) * math.Sqrt(3.0) / 2.0

			elev := octaveNoise(elevNoise, x, y, 4, 0.08, 0.5)
			moist := octaveNoise(moistNoise, x, y, 3, 0.06, 0.5)
			heat := octaveNoise(heatNoise, x, y, 3, 0.05, 0.5)

			// Latitude band keeps heat roughly equatorial.
			heat = heat*0.7 + (1.0-math.Abs(y)/float64(cfg.Radius))*0.3

			biome := deriveBiome(elev, moist, heat)

			// Richness trends higher toward the core of the map.
			dist := math.Sqrt(x*x+y*y) / float64(cfg.Radius)
			coreBias := 1.0 - math.Pow(dist, 2.5)
			if coreBias < 0 {
				coreBias = 0
			}
			rich := octaveNoise(richNoise, x, y, 3, 0.10, 0.5)
			richness := 30 + int(math.Round(70.0*rich*(0.55+0.45*coreBias)))
			richness += biomeRichnessBias(biome)
			richness = clampInt(richness, 30, 100)

			p := &Parcel{
				ID:              ParcelID(coord),
				Coord:           coord,
				Biome:           biome,
				Richness:        richness,
				DefenseLevel:    1,
				StorageCapacity: BaseStorageCapacity,
			}

			if saleRng.Float64() < cfg.ForSaleRatio {
				p.PurchasePriceAlgo = listPrice(richness)
			}

			g.Add(p)
		}
	}

	return g
}

// deriveBiome maps the three environmental fields onto a biome.
func deriveBiome(elev, moist, heat float64) Biome {
	switch {
	case elev >= 0.72:
		return BiomeMountains
	case elev >= 0.60 && heat >= 0.70:
		return BiomeVolcanic
	case elev >= 0.55 && moist >= 0.70:
		return BiomeCrystalline
	case heat <= 0.25:
		return BiomeTundra
	case moist <= 0.25 && heat >= 0.55:
		return BiomeDesert
	case moist >= 0.55:
		return BiomeForest
	default:
		return BiomePlains
	}
}

// biomeRichnessBias nudges starting richness by biome before clamping.
func biomeRichnessBias(b Biome) int {
	switch b {
	case BiomeVolcanic:
		return 10
	case BiomeCrystalline:
		return 15
	case BiomeTundra:
		return -10
	default:
		return 0
	}
}

// listPrice derives an external-currency asking price from richness.
func listPrice(richness int) float64 {
	price := 0.5 + float64(richness)*0.045
	return math.Round(price*100) / 100
}

// HomeClusters picks n well-separated clusters of parcel ids, each grown
// from a seed parcel by neighbor expansion, for assigning starting
// territory. Deterministic for a given seed; clusters never overlap.
func HomeClusters(g *Grid, n, size int, seed int64) [][]string {
	if n <= 0 || size <= 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(seed + 200))

	candidates := make([]*Parcel, 0, g.Count())
	for _, id := range g.SortedIDs() {
		p := g.Get(id)
		if p.Richness >= 50 && !p.Owned() {
			candidates = append(candidates, p)
		}
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	minSep := g.Radius / 2
	if minSep < 3 {
		minSep = 3
	}

	var seeds []*Parcel
	for _, c := range candidates {
		if len(seeds) == n {
			break
		}
		ok := true
		for _, s := range seeds {
			if Distance(c.Coord, s.Coord) < minSep {
				ok = false
				break
			}
		}
		if ok {
			seeds = append(seeds, c)
		}
	}
	// Relax separation if the map is too small for n spread-out seeds.
	for sep := minSep - 1; len(seeds) < n && sep >= 1; sep-- {
		for _, c := range candidates {
			if len(seeds) == n {
				break
			}
			ok := true
			for _, s := range seeds {
				if Distance(c.Coord, s.Coord) < sep {
					ok = false
					break
				}
			}
			if ok {
				seeds = append(seeds, c)
			}
		}
	}

	used := make(map[string]bool)
	clusters := make([][]string, 0, len(seeds))
	for _, s := range seeds {
		cluster := growCluster(g, s, size, used)
		clusters = append(clusters, cluster)
	}
	return clusters
}

// growCluster expands outward from the seed parcel, breadth-first, until
// the cluster reaches the requested size or runs out of unused parcels.
func growCluster(g *Grid, seed *Parcel, size int, used map[string]bool) []string {
	var cluster []string
	queue := []HexCoord{seed.Coord}
	seen := map[string]bool{seed.ID: true}

	for len(queue) > 0 && len(cluster) < size {
		c := queue[0]
		queue = queue[1:]

		p := g.At(c)
		if p == nil {
			continue
		}
		if !used[p.ID] {
			used[p.ID] = true
			cluster = append(cluster, p.ID)
		}
		for _, nc := range c.Neighbors() {
			id := ParcelID(nc)
			if !seen[id] && g.InBounds(nc) {
				seen[id] = true
				queue = append(queue, nc)
			}
		}
	}
	return cluster
}

// BiomeCounts summarizes the biome distribution, for startup logging.
func BiomeCounts(g *Grid) map[Biome]int {
	counts := make(map[Biome]int)
	for _, p := range g.Parcels {
		counts[p.Biome]++
	}
	return counts
}

// octaveNoise layers multiple noise frequencies into fractal detail.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
