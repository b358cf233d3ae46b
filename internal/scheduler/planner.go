package scheduler

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/nipisarev/mainote-bot/internal/domain"
)

// PreferenceLookup reads one user's stored settings in a single read.
// Empty fields mean unset.
type PreferenceLookup interface {
	Get(ctx context.Context, userID string) (domain.Preference, error)
}

// Plan maps user ids to their next fire time. It is rebuilt wholesale on
// every recalculation.
type Plan map[string]domain.FireTime

// Earliest returns the entry with the smallest wait. Ties go to the smallest
// user id so the choice is stable across calls.
func (p Plan) Earliest() (string, domain.FireTime, bool) {
	if len(p) == 0 {
		return "", domain.FireTime{}, false
	}
	var (
		bestID string
		best   domain.FireTime
		found  bool
	)
	for _, id := range p.userIDs() {
		ft := p[id]
		if !found || ft.Wait < best.Wait {
			bestID, best, found = id, ft, true
		}
	}
	return bestID, best, true
}

// Window returns the sorted ids whose fire instant is within tolerance of target.
func (p Plan) Window(target time.Time, tolerance time.Duration) []string {
	var ids []string
	for _, id := range p.userIDs() {
		d := p[id].At.Sub(target)
		if d < 0 {
			d = -d
		}
		if d <= tolerance {
			ids = append(ids, id)
		}
	}
	return ids
}

func (p Plan) userIDs() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Planner turns stored preferences and the default recipient list into a Plan.
type Planner struct {
	calc domain.Calculator
	log  *zap.Logger
}

func NewPlanner(zones domain.ZoneResolver, log *zap.Logger) *Planner {
	return &Planner{calc: domain.NewCalculator(zones), log: log}
}

// Plan computes the next fire time for every user with a stored notification
// time, then gives the shared default instant to every default recipient who
// has no stored preference at all. Per-user problems never abort the pass:
// malformed times are skipped, unknown zones fall back to server time, and
// read errors count as "no preference".
func (pl *Planner) Plan(
	ctx context.Context,
	users []string,
	lookup PreferenceLookup,
	defaults []string,
	defaultTime string,
	now time.Time,
) Plan {
	plan := make(Plan, len(users)+len(defaults))
	stored := make(map[string]struct{}, len(users))

	for _, id := range users {
		stored[id] = struct{}{}

		ft, ok := pl.planUser(ctx, id, lookup, now)
		if !ok {
			continue
		}
		plan[id] = ft
		pl.log.Debug("planned custom notification",
			zap.String("user_id", id),
			zap.String("local_time", ft.LocalTime),
			zap.String("tz", ft.Zone),
			zap.Time("at", ft.At),
		)
	}

	var pending []string
	for _, id := range defaults {
		if id == "" {
			continue
		}
		if _, ok := stored[id]; ok {
			continue
		}
		pending = append(pending, id)
	}
	if len(pending) == 0 {
		return plan
	}

	tod, err := domain.ParseTimeOfDay(defaultTime)
	if err != nil {
		pl.log.Error("invalid default notification time", zap.String("default_time", defaultTime), zap.Error(err))
		return plan
	}
	ft := domain.NextDefaultFire(tod, now)
	for _, id := range pending {
		plan[id] = ft
	}
	pl.log.Info("planned default notifications",
		zap.Int("users", len(pending)),
		zap.Time("at", ft.At),
	)
	return plan
}

func (pl *Planner) planUser(ctx context.Context, id string, lookup PreferenceLookup, now time.Time) (domain.FireTime, bool) {
	pref, err := lookup.Get(ctx, id)
	if err != nil {
		pl.log.Warn("read preference failed", zap.String("user_id", id), zap.Error(err))
		return domain.FireTime{}, false
	}
	localTime, zone := pref.NotificationTime, pref.Timezone
	if localTime == "" {
		return domain.FireTime{}, false
	}

	ft, err := pl.calc.NextFire(localTime, zone, now)
	switch {
	case err == nil:
		return ft, true
	case errors.Is(err, domain.ErrUnknownTimezone):
		pl.log.Error("timezone conversion failed, falling back to server time",
			zap.String("user_id", id), zap.String("tz", zone), zap.Error(err))
		ft, err = pl.calc.NextFireServer(localTime, now, true)
		if err == nil {
			return ft, true
		}
	}
	pl.log.Warn("skipping user with invalid notification time",
		zap.String("user_id", id), zap.String("local_time", localTime), zap.Error(err))
	return domain.FireTime{}, false
}
