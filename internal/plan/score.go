package plan

import (
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"

	"loanplan/internal/model"
)

// tiebreakScale keeps the deterministic tie-break strictly below 1e-6, far
// too small to perturb any rank-driven decision.
const tiebreakScale = 1e-12

// ScoreCandidates computes the weighted multi-factor score for every
// candidate in place. Scoring is pure per candidate, so it is fanned out
// across cfg.Workers goroutines when more than one is configured; the
// candidate order is untouched either way.
func ScoreCandidates(cands []Candidate, snap model.Snapshot, cfg Config) {
	partners := make(map[string]model.Partner, len(snap.Partners))
	for _, p := range snap.Partners {
		partners[p.PersonID] = p
	}

	// Last loan end per partner, any make, for the recency factor.
	lastEnd := make(map[string]int) // personID -> days since, -1 when unknown
	for _, p := range snap.Partners {
		lastEnd[p.PersonID] = -1
	}
	asOf := day(snap.AsOf)
	for _, h := range snap.LoanHistory {
		d := int(asOf.Sub(day(h.EffectiveEnd())).Hours() / 24)
		if d < 0 {
			d = 0
		}
		if prev, ok := lastEnd[h.PersonID]; !ok || prev == -1 || d < prev {
			lastEnd[h.PersonID] = d
		}
	}

	scoreOne := func(c *Candidate) {
		p := partners[c.PersonID]
		comp := ScoreComponents{
			RankWeight: cfg.rankWeight(c.Rank),
			Geo:        geoScore(p, snap, cfg),
			Pub:        pubRate(p),
			Recency:    recencyScore(lastEnd[c.PersonID], cfg.EngagementMode),
			Pref:       prefMatch(p, c),
			Tiebreak:   tiebreak(c.VIN, c.PersonID),
		}
		c.Components = comp
		c.Score = cfg.WRank*comp.RankWeight +
			cfg.WGeo*comp.Geo +
			cfg.WPub*comp.Pub +
			cfg.WRecency*comp.Recency +
			cfg.WPref*comp.Pref +
			comp.Tiebreak
	}

	workers := cfg.Workers
	if workers <= 1 || len(cands) < 64 {
		for i := range cands {
			scoreOne(&cands[i])
		}
		return
	}
	var wg sync.WaitGroup
	chunk := (len(cands) + workers - 1) / workers
	for lo := 0; lo < len(cands); lo += chunk {
		hi := lo + chunk
		if hi > len(cands) {
			hi = len(cands)
		}
		wg.Add(1)
		go func(part []Candidate) {
			defer wg.Done()
			for i := range part {
				scoreOne(&part[i])
			}
		}(cands[lo:hi])
	}
	wg.Wait()
}

// geoScore is a continuous distance-based score in (0, 1] when both partner
// and office coordinates exist, falling back to a binary same-office flag
// when either side is missing.
func geoScore(p model.Partner, snap model.Snapshot, cfg Config) float64 {
	if p.Lat != nil && p.Lon != nil && snap.OfficeLat != nil && snap.OfficeLon != nil {
		km := haversineMeters(*p.Lat, *p.Lon, *snap.OfficeLat, *snap.OfficeLon) / 1000
		return cfg.GeoDecayKm / (cfg.GeoDecayKm + km)
	}
	if p.Office == snap.Office {
		return 1
	}
	return 0
}

// pubRate normalizes the partner's publication rate to [0, 1]; values above 1
// are treated as percentages. Missing data contributes 0.
func pubRate(p model.Partner) float64 {
	if p.PublicationRate == nil {
		return 0
	}
	r := *p.PublicationRate
	if r > 1 {
		r /= 100
	}
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// recencyScore maps days-since-last-loan through the engagement mode.
// daysSince < 0 means no history: neutral 0.5 under dormant and momentum,
// 0 under neutral (where recency never contributes).
func recencyScore(daysSince int, mode EngagementMode) float64 {
	if mode == EngagementNeutral {
		return 0
	}
	if daysSince < 0 {
		return 0.5
	}
	switch mode {
	case EngagementDormant:
		// rises linearly to 1.0 at 90+ days of absence
		return math.Min(1, float64(daysSince)/90)
	case EngagementMomentum:
		// falls linearly from 1.0 at day 0 to 0.0 at 30+ days
		return math.Max(0, 1-float64(daysSince)/30)
	}
	return 0
}

func prefMatch(p model.Partner, c *Candidate) float64 {
	if p.PreferredWeekday != nil && c.StartDay.Weekday() == *p.PreferredWeekday {
		return 1
	}
	return 0
}

// tiebreak derives a tiny, strictly deterministic fraction from xxhash64 of
// (vin, personID), so equal-score candidates keep a fixed relative order
// across processes and platforms.
func tiebreak(vin, personID string) float64 {
	h := xxhash.Sum64String(vin + "|" + personID)
	return float64(h%1_000_000) * tiebreakScale
}

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
