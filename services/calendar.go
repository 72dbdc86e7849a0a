package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agenda-backend/models"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const maxCalendarPages = 200

var ErrPagingLoop = errors.New("calendar paging did not terminate")

// EventPage is one provider page of already-normalized events.
type EventPage struct {
	Events        []models.CalendarEvent
	NextPageToken string
}

type EventPager interface {
	ListPage(ctx context.Context, calendarID string, timeMin, timeMax time.Time, pageToken string) (EventPage, error)
}

// EventSource is what the dispatchers read from.
type EventSource interface {
	Fetch(ctx context.Context, timeMin, timeMax time.Time) ([]models.CalendarEvent, error)
}

// CalendarReader returns every event starting in [timeMin, timeMax).
type CalendarReader struct {
	pager      EventPager
	calendarID string
}

func NewCalendarReader(pager EventPager, calendarID string) *CalendarReader {
	return &CalendarReader{pager: pager, calendarID: calendarID}
}

func (r *CalendarReader) Fetch(ctx context.Context, timeMin, timeMax time.Time) ([]models.CalendarEvent, error) {
	timeMin, timeMax = timeMin.UTC(), timeMax.UTC()

	var out []models.CalendarEvent
	token := ""
	seen := map[string]bool{}
	for page := 0; ; page++ {
		if page >= maxCalendarPages {
			return nil, ErrPagingLoop
		}
		res, err := r.pager.ListPage(ctx, r.calendarID, timeMin, timeMax, token)
		if err != nil {
			return nil, fmt.Errorf("list events %s..%s: %w", timeMin.Format(time.RFC3339), timeMax.Format(time.RFC3339), err)
		}
		for _, ev := range res.Events {
			// the provider filters on end time, so re-check the start bound here
			if ev.Start.Before(timeMin) || !ev.Start.Before(timeMax) {
				continue
			}
			out = append(out, ev)
		}
		if res.NextPageToken == "" {
			return out, nil
		}
		if seen[res.NextPageToken] {
			return nil, ErrPagingLoop
		}
		seen[res.NextPageToken] = true
		token = res.NextPageToken
	}
}

// GoogleCalendar pages through Google Calendar v3 events.
type GoogleCalendar struct {
	svc *calendar.Service
}

func NewGoogleCalendar(ctx context.Context, email, privateKey string) (*GoogleCalendar, error) {
	conf := &jwt.Config{
		Email:      email,
		PrivateKey: []byte(privateKey),
		Scopes:     []string{calendar.CalendarReadonlyScope},
		TokenURL:   google.JWTTokenURL,
	}
	return NewGoogleCalendarWithOptions(ctx, option.WithHTTPClient(conf.Client(ctx)))
}

func NewGoogleCalendarWithOptions(ctx context.Context, opts ...option.ClientOption) (*GoogleCalendar, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google calendar client: %w", err)
	}
	return &GoogleCalendar{svc: svc}, nil
}

func (g *GoogleCalendar) ListPage(ctx context.Context, calendarID string, timeMin, timeMax time.Time, pageToken string) (EventPage, error) {
	call := g.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(2500).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	res, err := call.Do()
	if err != nil {
		return EventPage{}, err
	}

	page := EventPage{NextPageToken: res.NextPageToken}
	for _, item := range res.Items {
		if item == nil || item.Status == "cancelled" {
			continue
		}
		page.Events = append(page.Events, convertGoogleEvent(item))
	}
	return page, nil
}

// convertGoogleEvent maps a provider event. Date-only starts become midnight UTC
// with AllDay set; unparsable starts stay zero and are dropped by the reader.
func convertGoogleEvent(item *calendar.Event) models.CalendarEvent {
	ev := models.CalendarEvent{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
	}
	if item.ExtendedProperties != nil && len(item.ExtendedProperties.Private) > 0 {
		ev.Private = item.ExtendedProperties.Private
	}
	if item.Start == nil {
		return ev
	}
	switch {
	case item.Start.DateTime != "":
		if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
			ev.Start = t.UTC()
		}
	case item.Start.Date != "":
		if t, err := time.ParseInLocation("2006-01-02", item.Start.Date, time.UTC); err == nil {
			ev.Start = t
			ev.AllDay = true
		}
	}
	return ev
}
