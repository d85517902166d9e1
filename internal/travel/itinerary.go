package travel

import (
	"context"
	"fmt"
	"time"

	"github.com/avstrong/tripwatch/internal/logger"
)

const (
	searchLocale   = "zh-CN"
	defaultTopic   = "top sights"
	noteLiveSearch = "Generated with live search results; verify availability before booking."
	noteAdjust     = "Consider adjusting based on traveler preferences and local events."
)

type Planner struct {
	l        *logger.Logger
	provider Searcher
}

func NewPlanner(l *logger.Logger, provider Searcher) *Planner {
	return &Planner{
		l:        l,
		provider: provider,
	}
}

// Plan runs one search per interest and spreads the results over the trip's days.
func (p *Planner) Plan(ctx context.Context, req TripRequest) (Itinerary, error) {
	if err := req.Validate(); err != nil {
		return Itinerary{}, err
	}

	var activities []Activity

	for _, query := range planQueries(req) {
		records, err := p.provider.Search(ctx, query, map[string]string{"locale": searchLocale})
		if err != nil {
			return Itinerary{}, fmt.Errorf("search %q: %w", query, err)
		}

		for _, rec := range records {
			activities = append(activities, activityFromRecord(rec))
		}
	}

	p.l.LogDebug("Collected %d activities for %s", len(activities), req.DestinationLabel())

	return Itinerary{
		Request: req,
		Days:    bucketActivities(req.StartDate, req.EndDate, activities),
		Notes:   []string{noteLiveSearch, noteAdjust},
	}, nil
}

func planQueries(req TripRequest) []string {
	label := req.DestinationLabel()

	if len(req.Interests) == 0 {
		return []string{label + " " + defaultTopic}
	}

	queries := make([]string, 0, len(req.Interests))
	for _, interest := range req.Interests {
		queries = append(queries, label+" "+interest)
	}

	return queries
}

func activityFromRecord(rec Record) Activity {
	return Activity{
		Name:        rec.String("title"),
		Description: rec.String("snippet"),
		Location:    rec.String("location"),
		StartTime:   timestampValue(rec["start_time"]),
		EndTime:     timestampValue(rec["end_time"]),
		BookingURL:  rec.String("url"),
	}
}

// bucketActivities gives every day in [start, end] one bucket. Timed activities land on their own
// date, untimed ones on a cursor that moves one day per activity and wraps after end.
// Activities dated outside the trip are dropped.
func bucketActivities(start, end time.Time, activities []Activity) []ItineraryDay {
	start, end = civilDate(start), civilDate(end)

	byDate := make(map[time.Time][]Activity)
	cursor := start

	for _, activity := range activities {
		day := cursor
		if activity.StartTime != nil {
			day = civilDate(*activity.StartTime)
		}

		byDate[day] = append(byDate[day], activity)

		cursor = cursor.AddDate(0, 0, 1)
		if cursor.After(end) {
			cursor = start
		}
	}

	var days []ItineraryDay

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dayActivities := byDate[d]
		if dayActivities == nil {
			dayActivities = []Activity{}
		}

		days = append(days, ItineraryDay{Date: d, Activities: dayActivities})
	}

	return days
}
