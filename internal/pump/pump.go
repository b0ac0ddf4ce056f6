// Package pump implements the Event Pump: the single goroutine that owns
// the wm.Manager and drives it from Desktop Services events, hotkey
// callbacks, and IPC-triggered reload/restart requests (spec.md §5, §9).
// It follows the usual daemon shape of load-config, connect-backend,
// register-hotkeys, then block in a signal loop, pulled out of main() into
// its own package since restart reconstructs the whole Manager in place.
package pump

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/himewm/himewm/internal/action"
	"github.com/himewm/himewm/internal/config"
	"github.com/himewm/himewm/internal/desktop"
	"github.com/himewm/himewm/internal/hotkeys"
	"github.com/himewm/himewm/internal/ipc"
	"github.com/himewm/himewm/internal/layout"
	"github.com/himewm/himewm/internal/wm"
	"github.com/himewm/himewm/internal/zoneadjust"
)

// Pump owns the Desktop Services connection, the Manager, and everything
// that needs to be rebuilt on restart.
type Pump struct {
	configDir string

	svc        *desktop.X11Services
	mgr        *wm.Manager
	dispatcher *action.Dispatcher
	hk         *hotkeys.Handler
	ipcServer  *ipc.Server
	watcher    *config.Watcher

	reloadChan  chan struct{}
	restartChan chan struct{}
}

// New connects to the Desktop Services backend and performs the first
// (re)construction of the Manager from configDir.
func New(configDir string) (*Pump, error) {
	svc, err := desktop.NewX11Services()
	if err != nil {
		return nil, fmt.Errorf("pump: connecting to desktop services: %w", err)
	}

	p := &Pump{
		configDir:   configDir,
		svc:         svc,
		reloadChan:  make(chan struct{}, 1),
		restartChan: make(chan struct{}, 1),
	}

	if err := p.construct(); err != nil {
		svc.Close()
		return nil, err
	}

	watcher, err := config.NewWatcher(configDir)
	if err != nil {
		log.Printf("pump: config watching disabled: %v", err)
	} else {
		p.watcher = watcher
	}

	svc.RegisterEventHook(p.mgr.HandleEvent)
	svc.SetPostDispatchHook(p.checkRestart)
	return p, nil
}

// checkRestart runs after every dispatched event or posted func (see
// desktop.X11Services.SetPostDispatchHook) and turns a pending
// restart_himewm intent into an actual teardown/reconstruct cycle — the
// Manager method it reads only raises a flag (spec.md §4.3), so something
// on the pump goroutine has to act on it.
func (p *Pump) checkRestart() {
	if p.mgr.RestartRequested() {
		p.restart()
	}
}

// construct builds (or rebuilds, on restart) the Manager, Dispatcher,
// hotkey bindings, and IPC server from the current contents of configDir.
// Per spec.md §4.5's restart semantics the Desktop Services connection and
// its event hook registration survive across a construct() call — only the
// window-manager state is rebuilt from scratch.
func (p *Pump) construct() error {
	bundle, err := config.Load(p.configDir)
	if err != nil {
		return fmt.Errorf("pump: loading configuration: %w", err)
	}

	mgr := wm.NewManager(p.svc, bundle.Settings, bundle.Rules)

	monitors, err := p.svc.EnumerateMonitors()
	if err != nil {
		return fmt.Errorf("pump: enumerating monitors: %w", err)
	}
	layouts := make(wm.MonitorLayouts, len(monitors))
	for _, mon := range monitors {
		rect, err := p.svc.MonitorWorkRect(mon)
		if err != nil {
			return fmt.Errorf("pump: monitor work rect for %v: %w", mon, err)
		}
		adapted := make([]*layout.Layout, len(bundle.Layouts))
		for i, l := range bundle.Layouts {
			if a := zoneadjust.AdaptToMonitor(l, rect); a != nil {
				adapted[i] = a
			} else {
				adapted[i] = l
			}
		}
		layouts[mon] = adapted
	}

	if err := mgr.Initialize(layouts); err != nil {
		return fmt.Errorf("pump: initializing manager: %w", err)
	}

	dispatcher := action.NewDispatcher(mgr)

	if p.hk != nil {
		p.hk.UnregisterAll()
	}
	hk := hotkeys.NewHandler(p.svc, dispatcher)
	hk.RegisterAll(bundle.Keybinds)

	if p.ipcServer == nil {
		srv, err := ipc.NewServer(mgr, bundle, dispatcher, p.reloadChan, p.restartChan, p.svc.PostFunc)
		if err != nil {
			return fmt.Errorf("pump: creating ipc server: %w", err)
		}
		if err := srv.Start(); err != nil {
			return fmt.Errorf("pump: starting ipc server: %w", err)
		}
		p.ipcServer = srv
	} else {
		p.ipcServer.SetManager(mgr)
		p.ipcServer.SetBundle(bundle)
	}

	p.mgr = mgr
	p.dispatcher = dispatcher
	p.hk = hk
	return nil
}

// Run drives the pump until SIGINT/SIGTERM. It owns the Manager for the
// lifetime of the process — HandleEvent, hotkey callbacks, and
// reload/restart all happen synchronously on this goroutine (spec.md §5).
func (p *Pump) Run() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	var watchEvents <-chan struct{}
	if p.watcher != nil {
		watchEvents = p.watcher.Events
	}

	go func() {
		for {
			select {
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					p.svc.PostFunc(p.reload)
				default:
					p.shutdown()
					os.Exit(0)
				}
			case <-p.reloadChan:
				p.svc.PostFunc(p.reload)
			case <-p.restartChan:
				p.svc.PostFunc(p.restart)
			case <-watchEvents:
				p.svc.PostFunc(p.reload)
			}
		}
	}()

	log.Println("pump: entering event loop")
	p.svc.Run()
}

func (p *Pump) reload() {
	log.Println("pump: reloading configuration")
	if err := p.construct(); err != nil {
		log.Printf("pump: reload failed, keeping previous state: %v", err)
		return
	}
	p.svc.RegisterEventHook(p.mgr.HandleEvent)
}

// restart implements spec.md §4.5's restart_himewm flow: the Desktop
// Services connection and its event hook are preserved; everything
// window-manager-state-shaped is torn down and reconstructed, and construct
// releases the previous hotkey grabs and registers them afresh. Before teardown, every window the outgoing Manager still
// tracks has its border and corner preference reset to system defaults
// (spec.md §4.5 step b, scenario E) — windows that drop out of management
// across the reload would otherwise keep stale borders, since the new
// Manager's Initialize only re-applies focused-color state to windows it
// still manages.
func (p *Pump) restart() {
	log.Println("pump: restart requested")
	p.mgr.ClearRestartRequested()
	p.mgr.ResetAllBorders()
	if err := p.construct(); err != nil {
		log.Printf("pump: restart failed: %v", err)
		return
	}
	p.svc.RegisterEventHook(p.mgr.HandleEvent)
}

func (p *Pump) shutdown() {
	log.Println("pump: shutting down")
	if p.watcher != nil {
		p.watcher.Close()
	}
	if p.ipcServer != nil {
		p.ipcServer.Stop()
	}
	p.svc.Close()
}
