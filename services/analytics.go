package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/yeremiapane/restroflow/models"
	"golang.org/x/sync/errgroup"
)

type PeakHours struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// Analytics summarises the queue right now and today's seatings. Minutes are
// rounded to the nearest whole minute.
type Analytics struct {
	AvgWaitMinutes     int       `json:"avg_wait_time"`
	LongestWaitMinutes int       `json:"longest_wait_time"`
	SeatedToday        int       `json:"seated_today"`
	AvgSeatWaitMinutes int       `json:"avg_seat_wait_time"`
	PeakHours          PeakHours `json:"peak_hours_data"`
}

type TableCounts struct {
	Total    int `json:"total"`
	Free     int `json:"free"`
	Occupied int `json:"occupied"`
	Blocked  int `json:"blocked"`
	Queue    int `json:"queue"`
}

// Dashboard is everything the host stand shows on one screen.
type Dashboard struct {
	Tables               []models.Table    `json:"all_tables"`
	Customers            []PartySuggestion `json:"customers"`
	Waiters              []models.Waiter   `json:"waiters"`
	AutoAllocatorEnabled bool              `json:"auto_allocator_enabled"`
	Counts               TableCounts       `json:"counts"`
	Analytics            Analytics         `json:"analytics"`
}

func (r *Restaurant) Analytics(ctx context.Context) (*Analytics, error) {
	db := r.DB.WithContext(ctx)
	now := r.core.now()
	out := &Analytics{PeakHours: PeakHours{Labels: []string{}, Data: []int{}}}

	parties, err := queuedParties(db)
	if err != nil {
		return nil, err
	}
	if len(parties) > 0 {
		var total, longest time.Duration
		for _, p := range parties {
			wait := now.Sub(p.ArrivedAt)
			total += wait
			if wait > longest {
				longest = wait
			}
		}
		out.AvgWaitMinutes = roundMinutes(total / time.Duration(len(parties)))
		out.LongestWaitMinutes = roundMinutes(longest)
	}

	local := now.In(r.location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.location)
	var today []models.HistoryRecord
	if err := db.Where("seated_at >= ?", dayStart.UTC()).Order("seated_at ASC").Find(&today).Error; err != nil {
		return nil, storeErr("load today's history", err)
	}
	out.SeatedToday = len(today)
	if len(today) == 0 {
		return out, nil
	}

	var waited time.Duration
	hourly := make(map[int]int)
	minHour, maxHour := 23, 0
	for _, rec := range today {
		waited += rec.WaitDuration()
		h := rec.SeatedAt.In(r.location).Hour()
		hourly[h]++
		minHour = min(minHour, h)
		maxHour = max(maxHour, h)
	}
	out.AvgSeatWaitMinutes = roundMinutes(waited / time.Duration(len(today)))
	for h := minHour; h <= maxHour; h++ {
		out.PeakHours.Labels = append(out.PeakHours.Labels, hourLabel(h))
		out.PeakHours.Data = append(out.PeakHours.Data, hourly[h])
	}
	return out, nil
}

// Dashboard loads the host stand view. The reads are independent and run
// concurrently.
func (r *Restaurant) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Tables, err = r.Tables.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Customers, err = r.Queue.Suggestions(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.Waiters, err = r.Waiters.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		d.AutoAllocatorEnabled, err = r.Settings.AutoAllocatorEnabled(gctx)
		return err
	})
	g.Go(func() error {
		a, err := r.Analytics(gctx)
		if err != nil {
			return err
		}
		d.Analytics = *a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.Counts = TableCounts{Total: len(d.Tables), Queue: len(d.Customers)}
	for _, t := range d.Tables {
		switch t.Status {
		case models.TableStatusFree:
			d.Counts.Free++
		case models.TableStatusOccupied:
			d.Counts.Occupied++
		case models.TableStatusBlocked:
			d.Counts.Blocked++
		}
	}
	return &d, nil
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

// hourLabel renders 0..23 as "12 AM".."11 PM".
func hourLabel(h int) string {
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	display := h % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d %s", display, suffix)
}
