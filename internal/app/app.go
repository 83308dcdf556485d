// Package app wires the call screener together: router client, prefix
// table, reputation cascade, blocker, sinks, and the ops HTTP server.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"callscreen/internal/blocker"
	"callscreen/internal/config"
	"callscreen/internal/directory"
	"callscreen/internal/events"
	"callscreen/internal/fritz"
	"callscreen/internal/httpapi"
	"callscreen/internal/logfile"
	"callscreen/internal/monitor"
	"callscreen/internal/notify"
	"callscreen/internal/prefix"
	"callscreen/internal/reputation"
	"callscreen/internal/store"
	"callscreen/internal/watch"
)

// App owns all long-lived components.
type App struct {
	cfg     config.Config
	store   *store.Store
	bus     *events.Bus
	blk     *blocker.Blocker
	mon     *monitor.Monitor
	watcher *watch.Watcher
	mux     *http.ServeMux
}

func New(cfg config.Config) (*App, error) {
	// One router connection handle, shared by the directory and the
	// area/country code lookups. Constructed here once and passed down.
	client := fritz.New(cfg.MonitorHost, cfg.RouterPort, cfg.RouterUsername, cfg.RouterPassword)

	areaCode, err := client.AreaCode()
	if err != nil {
		return nil, fmt.Errorf("read area code from router: %w", err)
	}
	countryCode, err := client.CountryCode()
	if err != nil {
		return nil, fmt.Errorf("read country code from router: %w", err)
	}

	table, err := prefix.Load(countryCode, prefix.Datasets{
		LandlineCSV:      cfg.LandlineCSV,
		MobileCSV:        cfg.MobileCSV,
		CountryCodesJSON: cfg.CountryCodesJSON,
		CountryNamesJSON: cfg.CountryNamesJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("load prefix table: %w", err)
	}

	dir := directory.New(client)
	// A configured phonebook that does not exist is a total
	// misconfiguration, refuse to start.
	if err := dir.EnsureListsExist(cfg.AllListIDs()); err != nil {
		return nil, err
	}

	cascade := &reputation.Cascade{
		Reverse: reputation.NewReverseSource(cfg.ReverseBaseURL),
		Scorer:  reputation.NewScoreSource(cfg.ScoreBaseURL, cfg.ScorePartner, cfg.ScoreAPIKey),
	}

	var decisionAnon, monitorAnon logfile.Anonymizer
	if cfg.Anonymize {
		decisionAnon = blocker.AnonymizeDecisionLine
		monitorAnon = monitor.AnonymizeLine
	}
	decisionLog, err := logfile.NewFile(cfg.LogFolder, "callblocker", cfg.DailyLogs, decisionAnon)
	if err != nil {
		return nil, fmt.Errorf("open decision log: %w", err)
	}
	monitorLog, err := logfile.NewFile(cfg.LogFolder, "callmonitor", cfg.DailyLogs, monitorAnon)
	if err != nil {
		return nil, fmt.Errorf("open monitor log: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open decision store: %w", err)
	}

	bus := events.NewBus()
	sink := func(d *blocker.Decision) {
		if err := st.Insert(context.Background(), d); err != nil {
			log.Printf("record decision: %v", err)
		}
		bus.Publish(d)
	}

	blk := blocker.New(cfg, dir, table, cascade, areaCode, decisionLog, sink)
	if err := blk.Reload(); err != nil {
		return nil, fmt.Errorf("initial phonebook load: %w", err)
	}

	mon := monitor.New(cfg.MonitorHost, cfg.MonitorPort, cfg.ReconnectDelay, blk.HandleLine, monitorLog.LogLine)
	watcher := watch.New(cfg.ConfigPath, blk)

	mux := http.NewServeMux()
	httpapi.NewRouter(cfg, st, dir).Register(mux)

	log.Printf("call screener initialized: country:%s (%s) area:%s (%s) whitelisted:%d blacklisted:%d prefixes:%d",
		table.Name(countryCode), countryCode, table.Name(areaCode), areaCode,
		dir.Size(cfg.WhitelistIDs...), dir.Size(cfg.BlacklistIDs...), table.Len())

	return &App{cfg: cfg, store: st, bus: bus, blk: blk, mon: mon, watcher: watcher, mux: mux}, nil
}

// Run starts the notifier, config watcher, and HTTP server, then drains the
// call monitor until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if n := notify.New(a.cfg.WebhookURL); n != nil {
		decisions := a.bus.Subscribe()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case d := <-decisions:
					n.Send("CallBlocker: " + d.Line())
				}
			}
		}()
	}

	if err := a.watcher.Start(ctx); err != nil {
		log.Printf("config watcher disabled: %v", err)
	}

	srv := &http.Server{Addr: a.cfg.HTTPPort, Handler: a.mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	go func() {
		log.Printf("ops http listening on %s", a.cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("ops http server: %v", err)
		}
	}()

	err := a.mon.Run(ctx)
	a.store.Close()
	return err
}

// Blocker exposes the engine for replay tooling.
func (a *App) Blocker() *blocker.Blocker { return a.blk }
