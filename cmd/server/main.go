package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"thegrind.cafe/internal/persistence/indexdb"
	persistlog "thegrind.cafe/internal/persistence/log"
	"thegrind.cafe/internal/persistence/savegame"
	"thegrind.cafe/internal/persistence/snapshot"
	"thegrind.cafe/internal/sim/catalogs"
	"thegrind.cafe/internal/sim/rng"
	"thegrind.cafe/internal/sim/tuning"
	"thegrind.cafe/internal/sim/world"
	"thegrind.cafe/internal/transport/ws"
)

type serverFlags struct {
	addr       string
	saveID     string
	configDir  string
	dataDir    string
	tuningPath string
	snapPath   string
	disableDB  bool
	logLevel   string
}

func main() {
	var f serverFlags
	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Run one cafe and serve it over websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVar(&f.addr, "addr", envString("GRIND_ADDR", ":8080"), "http listen address (GRIND_ADDR)")
	rootCmd.Flags().StringVar(&f.saveID, "save", envString("GRIND_SAVE_ID", "default"), "save id (GRIND_SAVE_ID)")
	rootCmd.Flags().StringVar(&f.configDir, "configs", "./configs", "config directory; catalogs are read from <configs>/catalogs when present")
	rootCmd.Flags().StringVar(&f.dataDir, "data", envString("GRIND_DATA_DIR", "./data"), "runtime data directory (GRIND_DATA_DIR)")
	rootCmd.Flags().StringVar(&f.tuningPath, "tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
	rootCmd.Flags().StringVar(&f.snapPath, "snapshot", "", "restore from this snapshot instead of the stored save")
	rootCmd.Flags().BoolVar(&f.disableDB, "disable-db", false, "keep saves as json files and skip the sqlite index")
	rootCmd.Flags().StringVar(&f.logLevel, "log-level", envString("GRIND_LOG_LEVEL", "info"), "debug|info|warn|error")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(f serverFlags) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "server", ReportTimestamp: true})
	if lvl, err := log.ParseLevel(f.logLevel); err == nil {
		logger.SetLevel(lvl)
	}

	tune, cats, err := loadConfig(f, logger)
	if err != nil {
		return err
	}

	saveDir := filepath.Join(f.dataDir, "saves", f.saveID)
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return err
	}

	var idx *indexdb.SQLiteIndex
	var repo savegame.Repo
	if f.disableDB {
		fr, err := savegame.NewFileRepo(filepath.Join(f.dataDir, "saves"))
		if err != nil {
			return err
		}
		repo = fr
	} else {
		idx, err = indexdb.OpenSQLite(filepath.Join(f.dataDir, "index", "cafe.sqlite"))
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Warn("index: upsert catalogs", "err", err)
		}
		repo = savegame.NewSQLiteRepo(idx)
	}

	engine := world.NewEngine(cats, tune, rng.Unseeded())

	ctx, cancel := signalContext()
	defer cancel()

	initial, err := loadInitial(ctx, f, repo, engine, logger)
	if err != nil {
		return err
	}

	w := world.New(world.Config{
		SaveID:             f.saveID,
		SnapshotEveryTicks: tune.SnapshotEveryTicks,
	}, engine, initial, logger.WithPrefix("world"))

	sigLog := persistlog.Fanout{
		Signals: persistlog.NewSignalLogger(saveDir),
		Days:    persistlog.NewDayLogger(saveDir),
	}
	defer sigLog.Close()
	if idx != nil {
		w.SetSignalLogger(multiSignalLogger{sigLog, idx.DayLedger(f.saveID)})
	} else {
		w.SetSignalLogger(sigLog)
	}

	p := &persister{
		saveDir:      saveDir,
		repo:         repo,
		idx:          idx,
		archiveEvery: tune.Settlement.ArchiveEveryDays,
		log:          logger.WithPrefix("persist"),
	}
	snapCh := make(chan world.Checkpoint, 4)
	w.SetSnapshotSink(snapCh)
	persistDone := make(chan struct{})
	go func() {
		defer close(persistDone)
		p.run(ctx, snapCh)
	}()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("world stopped", "err", err)
		}
	}()

	wsSrv, err := ws.NewServer(w, logger.WithPrefix("ws"))
	if err != nil {
		return err
	}
	prometheus.MustRegister(newCafeCollector(f.saveID, w, wsSrv, idx))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			SaveID  string             `json:"save_id"`
			Metrics world.WorldMetrics `json:"metrics"`
			State   world.State        `json:"state"`
		}{SaveID: f.saveID, Metrics: w.Metrics(), State: w.Snapshot()}
		_ = json.NewEncoder(rw).Encode(resp)
	})
	mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel2()
		tick, err := w.RequestSnapshot(ctx2)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": tick, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": tick})
	})
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              f.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info("listening", "addr", f.addr, "save", f.saveID, "tick", w.CurrentTick())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		return err
	}

	<-worldDone
	<-persistDone
	final := w.Snapshot()
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer saveCancel()
	if err := repo.Save(saveCtx, f.saveID, final); err != nil {
		logger.Error("final save failed", "err", err)
		return err
	}
	logger.Info("saved", "save", f.saveID, "tick", final.Tick)
	return nil
}

func loadConfig(f serverFlags, logger *log.Logger) (tuning.Tuning, *catalogs.Catalogs, error) {
	tp := strings.TrimSpace(f.tuningPath)
	if tp == "" {
		tp = filepath.Join(f.configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			return tuning.Tuning{}, nil, fmt.Errorf("load tuning: %w", err)
		}
		logger.Warn("tuning not found; using defaults", "path", tp)
		tune = tuning.Defaults()
	}

	catDir := filepath.Join(f.configDir, "catalogs")
	if _, err := os.Stat(catDir); err != nil {
		logger.Info("using embedded catalogs")
		return tune, catalogs.Default(), nil
	}
	cats, err := catalogs.Load(catDir)
	if err != nil {
		return tuning.Tuning{}, nil, fmt.Errorf("load catalogs: %w", err)
	}
	return tune, cats, nil
}

func loadInitial(ctx context.Context, f serverFlags, repo savegame.Repo, e *world.Engine, logger *log.Logger) (world.State, error) {
	if f.snapPath == "" {
		return savegame.Load(ctx, repo, e, f.saveID, logger)
	}
	snap, err := snapshot.ReadSnapshot(f.snapPath)
	if err != nil {
		return world.State{}, fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Header.SaveID != "" && snap.Header.SaveID != f.saveID {
		return world.State{}, fmt.Errorf("snapshot save id mismatch: flag=%s snap=%s", f.saveID, snap.Header.SaveID)
	}
	st, err := e.Migrate(snap.State)
	if err != nil {
		return world.State{}, fmt.Errorf("migrate snapshot: %w", err)
	}
	logger.Info("restored from snapshot", "path", filepath.Base(f.snapPath), "tick", st.Tick)
	return st, nil
}

type multiSignalLogger []world.SignalLogger

func (m multiSignalLogger) WriteSignal(sig world.Signal) error {
	var errs []error
	for _, l := range m {
		errs = append(errs, l.WriteSignal(sig))
	}
	return errors.Join(errs...)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
