package plan

import (
	"sort"
	"time"

	"loanplan/internal/model"
)

// Candidate is one feasible (vehicle, partner, start day) triple. Candidates
// are ephemeral: generated fresh each run and discarded after reporting.
type Candidate struct {
	VIN         string
	PersonID    string
	StartOffset int // days after the week start
	StartDay    time.Time

	Make       string
	Model      string
	Class      string
	Powertrain string
	Rank       model.Rank

	// Cooldown audit annotations, populated by the cooldown filter when a
	// matching prior loan exists.
	CooldownBasis  string
	CooldownExpiry *time.Time

	// Score component breakdown, populated by the objective shaper.
	Components ScoreComponents
	Score      float64
}

// ScoreComponents is the per-factor breakdown behind a candidate's score.
type ScoreComponents struct {
	RankWeight float64 `json:"rankWeight"`
	Geo        float64 `json:"geo"`
	Pub        float64 `json:"pub"`
	Recency    float64 `json:"recency"`
	Pref       float64 `json:"pref"`
	Tiebreak   float64 `json:"tiebreak"`
}

// day truncates t to a UTC calendar date.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GenerateCandidates enumerates every feasible (vehicle, partner, start day)
// triple for the snapshot's office and week. A start day is feasible for a
// vehicle only when the vehicle has at least cfg.MinAvailableDays consecutive
// available days from it; vehicles that cannot cover a full loan from any
// allowed start are excluded entirely rather than given a shorter loan.
// Empty vehicle or partner sets yield an empty slice, not an error.
func GenerateCandidates(snap model.Snapshot, cfg Config) []Candidate {
	weekStart := day(snap.WeekStart)

	allowed := make(map[time.Weekday]bool, len(cfg.AllowedStartWeekdays))
	for _, wd := range cfg.AllowedStartWeekdays {
		allowed[wd] = true
	}

	// vin -> available dates
	avail := make(map[string]map[time.Time]bool)
	for _, a := range snap.Availability {
		if !a.Available {
			continue
		}
		m := avail[a.VIN]
		if m == nil {
			m = make(map[time.Time]bool)
			avail[a.VIN] = m
		}
		m[day(a.Date)] = true
	}

	// Blackout dates close their start day regardless of availability.
	blackout := make(map[time.Time]bool)
	for _, c := range snap.CapacityDays {
		if c.Office == snap.Office && c.Slots == 0 {
			blackout[day(c.Date)] = true
		}
	}

	// person -> make -> rank eligibility
	eligible := make(map[string]map[string]model.Rank)
	for _, ap := range snap.Approvals {
		m := eligible[ap.Make]
		if m == nil {
			m = make(map[string]model.Rank)
			eligible[ap.Make] = m
		}
		m[ap.PersonID] = ap.Rank
	}

	partners := make([]model.Partner, 0, len(snap.Partners))
	for _, p := range snap.Partners {
		if p.Office == snap.Office {
			partners = append(partners, p)
		}
	}

	var out []Candidate
	for _, v := range snap.Vehicles {
		if v.Office != snap.Office {
			continue
		}
		dates := avail[v.VIN]
		if len(dates) == 0 {
			continue
		}
		for off := 0; off < 7; off++ {
			start := weekStart.AddDate(0, 0, off)
			if !allowed[start.Weekday()] || blackout[start] {
				continue
			}
			if runLength(dates, start) < cfg.MinAvailableDays {
				continue
			}
			for _, p := range partners {
				rank, ok := eligible[v.Make][p.PersonID]
				if !ok {
					if !cfg.EligibilityFallbackAll {
						continue
					}
					rank = model.RankC
				}
				out = append(out, Candidate{
					VIN:         v.VIN,
					PersonID:    p.PersonID,
					StartOffset: off,
					StartDay:    start,
					Make:        v.Make,
					Model:       v.Model,
					Class:       v.Class,
					Powertrain:  v.Powertrain,
					Rank:        rank,
				})
			}
		}
	}

	sortCandidates(out)
	return out
}

// runLength counts consecutive available dates beginning at start.
func runLength(dates map[time.Time]bool, start time.Time) int {
	n := 0
	for d := start; dates[d]; d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// sortCandidates imposes the canonical candidate order fed to the solver, so
// that parallel generation or scoring never perturbs determinism.
func sortCandidates(cands []Candidate) {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.VIN != b.VIN {
			return a.VIN < b.VIN
		}
		if a.PersonID != b.PersonID {
			return a.PersonID < b.PersonID
		}
		return a.StartOffset < b.StartOffset
	})
}
