package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"presence/internal/checkin/models"
	offlineservice "presence/internal/offlinequeue/service"
	"presence/internal/verification/geofence"
	id "presence/pkg/domain"
)

func (a *agent) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "checkin":
		return a.checkIn(ctx, args)
	case "ticket":
		return a.fetchTicket(ctx, args)
	case "sync":
		return a.syncOnce(ctx)
	case "queue":
		return a.listQueue(ctx, args)
	case "ledger":
		return a.showLedger(ctx, args)
	case "run":
		return a.run(ctx)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

type outcomeView struct {
	State          models.State   `json:"state"`
	Method         models.Method  `json:"method"`
	Reason         string         `json:"reason,omitempty"`
	Sequence       uint64         `json:"sequence,omitempty"`
	Hash           string         `json:"hash,omitempty"`
	QueueItemID    string         `json:"queue_item_id,omitempty"`
	DistanceMeters float64        `json:"distance_m,omitempty"`
	Remaining      int            `json:"remaining,omitempty"`
	History        []models.State `json:"history"`
}

// attemptFlags registers the flags that describe one presence proof.
type attemptFlags struct {
	event  *string
	method *string
	lat    *float64
	lng    *float64
	code   *string
	token  *string
}

func newAttemptFlags(fs *flag.FlagSet) attemptFlags {
	return attemptFlags{
		event:  fs.String("event", "", "event id"),
		method: fs.String("method", string(models.MethodGeo), "geo, code or qr"),
		lat:    fs.Float64("lat", 0, "latitude for geo proofs"),
		lng:    fs.Float64("lng", 0, "longitude for geo proofs"),
		code:   fs.String("code", "", "rotating code shown at the event"),
		token:  fs.String("token", "", "scanned event token"),
	}
}

func (f attemptFlags) request(userID id.UserID) (models.Request, error) {
	eventID, err := id.ParseEventID(*f.event)
	if err != nil {
		return models.Request{}, fmt.Errorf("-event: %w", err)
	}
	m, err := models.ParseMethod(*f.method)
	if err != nil {
		return models.Request{}, err
	}
	req := models.Request{UserID: userID, EventID: eventID, Method: m}
	switch m {
	case models.MethodGeo:
		req.Evidence.Location = &geofence.Point{Lat: *f.lat, Lng: *f.lng}
	case models.MethodCode:
		req.Evidence.Code = *f.code
	case models.MethodToken:
		req.Evidence.Token = *f.token
	}
	return req, nil
}

// checkIn verifies geofence attempts on the device, so they can be queued
// while offline. Code and scan-token attempts need the event secret or the
// token key and are forwarded to the server.
func (a *agent) checkIn(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkin", flag.ExitOnError)
	attempt := newAttemptFlags(fs)
	_ = fs.Parse(args)

	req, err := attempt.request(a.userID)
	if err != nil {
		return err
	}
	var out *models.Outcome
	if req.Method == models.MethodGeo {
		out, err = a.coordinator.CheckIn(ctx, req)
	} else {
		out, err = a.client.CheckIn(ctx, req)
	}
	if err != nil {
		return err
	}

	view := outcomeView{
		State:          out.State,
		Method:         out.Method,
		Reason:         string(out.Reason),
		QueueItemID:    out.QueueItemID,
		DistanceMeters: out.DistanceMeters,
		Remaining:      out.Remaining,
		History:        out.History,
	}
	if out.Entry != nil {
		view.Sequence = out.Entry.Sequence
		view.Hash = out.Entry.Hash
	}
	return printJSON(view)
}

// fetchTicket proves presence once while online and stores the granted
// offline ticket for later queued check-ins.
func (a *agent) fetchTicket(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ticket", flag.ExitOnError)
	attempt := newAttemptFlags(fs)
	_ = fs.Parse(args)

	req, err := attempt.request(a.userID)
	if err != nil {
		return err
	}
	tk, err := a.client.IssueTicket(ctx, req)
	if err != nil {
		return err
	}
	// Cache the event profile too, so geofence checks work offline.
	if _, err := a.client.Get(ctx, req.EventID); err != nil {
		a.log.WarnContext(ctx, "failed to cache event profile", "event_id", req.EventID.String(), "error", err)
	}
	if err := a.tickets.Store(ctx, req.EventID, *tk); err != nil {
		return err
	}
	return printJSON(map[string]any{"event_id": req.EventID.String(), "expires_at": tk.ExpiresAt})
}

func (a *agent) syncOnce(ctx context.Context) error {
	report, err := a.queue.Process(ctx, a.client.Sync)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func (a *agent) listQueue(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("queue", flag.ExitOnError)
	drop := fs.Bool("clear", false, "drop every queued check-in")
	_ = fs.Parse(args)

	if *drop {
		return a.queue.Clear(ctx)
	}
	items, err := a.queue.List(ctx)
	if err != nil {
		return err
	}
	return printJSON(items)
}

func (a *agent) showLedger(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ledger", flag.ExitOnError)
	verify := fs.Bool("verify", false, "verify the chain instead of listing it")
	_ = fs.Parse(args)

	if *verify {
		report, err := a.client.VerifyLedger(ctx)
		if err != nil {
			return err
		}
		if err := printJSON(report); err != nil {
			return err
		}
		if !report.Valid {
			return fmt.Errorf("ledger broken at sequence %d", report.BrokenAt)
		}
		return nil
	}
	entries, err := a.client.ListLedger(ctx)
	if err != nil {
		return err
	}
	return printJSON(entries)
}

// run drains the queue on the configured interval until ctx is cancelled.
func (a *agent) run(ctx context.Context) error {
	worker := offlineservice.NewWorker(a.queue, a.client.Sync, a.cfg.SyncInterval, a.log)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	worker.Trigger()
	a.log.InfoContext(ctx, "presence agent running", "server", a.cfg.ServerURL, "queue", a.cfg.QueuePath)
	return g.Wait()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
