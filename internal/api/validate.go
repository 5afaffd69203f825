package api

import (
	"fmt"
	"time"

	"loanplan/internal/model"
)

func validatePlanRequest(req *model.PlanRequest) (time.Time, error) {
	if req.Office == "" {
		return time.Time{}, fmt.Errorf("office is required")
	}
	if req.WeekStart == "" {
		return time.Time{}, fmt.Errorf("weekStart is required")
	}
	ws, err := time.ParseInLocation("2006-01-02", req.WeekStart, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("weekStart must be an ISO date: %v", err)
	}
	if ws.Weekday() != time.Monday {
		return time.Time{}, fmt.Errorf("weekStart must be a Monday, got %s", ws.Weekday())
	}
	if req.TimeLimitSeconds != nil && *req.TimeLimitSeconds <= 0 {
		return time.Time{}, fmt.Errorf("timeLimitSeconds must be > 0")
	}
	if req.Workers != nil && *req.Workers < 1 {
		return time.Time{}, fmt.Errorf("workers must be >= 1")
	}
	if req.LambdaFair != nil && *req.LambdaFair < 0 {
		return time.Time{}, fmt.Errorf("lambdaFair must be >= 0")
	}
	return ws, nil
}
