package plan

import (
	"fmt"
	"time"

	"loanplan/internal/model"
)

// monday is the target week used by most fixtures (2025-09-01 is a Monday).
var monday = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
func tptr(t time.Time) *time.Time {
	return &t
}
func wptr(w time.Weekday) *time.Weekday { return &w }

func vinN(i int) string    { return fmt.Sprintf("VIN%03d", i) }
func personN(i int) string { return fmt.Sprintf("p%03d", i) }

// availableAll marks vins fully available for days starting at from.
func availableAll(vins []string, from time.Time, days int) []model.AvailabilityRecord {
	var out []model.AvailabilityRecord
	for _, vin := range vins {
		for i := 0; i < days; i++ {
			out = append(out, model.AvailabilityRecord{VIN: vin, Date: from.AddDate(0, 0, i), Available: true})
		}
	}
	return out
}

// testSnapshot builds a one-office snapshot with full availability for the
// given vehicles and A+ approvals for every (partner, make) pair.
func testSnapshot(vehicles []model.Vehicle, partners []model.Partner) model.Snapshot {
	snap := model.Snapshot{
		Office:    "LAX",
		WeekStart: monday,
		AsOf:      monday,
		Vehicles:  vehicles,
		Partners:  partners,
	}
	vins := make([]string, len(vehicles))
	makes := map[string]bool{}
	for i, v := range vehicles {
		vins[i] = v.VIN
		makes[v.Make] = true
	}
	snap.Availability = availableAll(vins, monday, 14)
	for _, p := range partners {
		for mk := range makes {
			snap.Approvals = append(snap.Approvals, model.Approval{PersonID: p.PersonID, Make: mk, Rank: model.RankAPlus})
		}
	}
	return snap
}

func vehicle(vin, mk, mdl string) model.Vehicle {
	return model.Vehicle{VIN: vin, Make: mk, Model: mdl, Office: "LAX"}
}

func partner(id string) model.Partner {
	return model.Partner{PersonID: id, Office: "LAX"}
}

// testConfig returns defaults tuned for fast, fully deterministic tests.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SolverIterations = 5000
	cfg.SolverTimeLimit = 30 * time.Second
	cfg.Seed = 42
	cfg.Workers = 1
	return cfg
}
