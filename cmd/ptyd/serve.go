package main

import (
	"github.com/spf13/cobra"

	"github.com/redox-os/ptyd/bridge"
	"github.com/redox-os/ptyd/eventloop"
	"github.com/redox-os/ptyd/handle"
	"github.com/redox-os/ptyd/internal/config"
	"github.com/redox-os/ptyd/internal/logger"
	"github.com/redox-os/ptyd/pty"
	"github.com/redox-os/ptyd/scheme"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the PTY scheme daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(cfg.LogLevel)

			sch := scheme.New()
			transport, err := eventloop.NewSocketTransport(cfg.Socket)
			if err != nil {
				return err
			}
			defer transport.Close()

			loop := eventloop.New(sch, transport)
			if cfg.Bridge {
				loop.SetSweepHook(newBridgeSet(sch).pump)
			}

			logger.Info("listening", "socket", cfg.Socket, "bridge", cfg.Bridge)
			return loop.Run(eventloop.TickPeriod(cfg.Tick()))
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "/etc/ptyd.yaml", "path to YAML config file")
	return cmd
}

// bridgeSet tracks which controllers already have a kernel PTY pair bridged
// to their Pty, opening one on first sight and releasing it once the Pty's
// last controller closes.
type bridgeSet struct {
	sch     *scheme.Scheme
	bridged map[*pty.Pty]*bridge.Bridge
}

func newBridgeSet(sch *scheme.Scheme) *bridgeSet {
	return &bridgeSet{sch: sch, bridged: make(map[*pty.Pty]*bridge.Bridge)}
}

func (b *bridgeSet) pump() {
	live := make(map[*pty.Pty]bool, len(b.bridged))

	for _, id := range b.sch.Handles() {
		h, ok := b.sch.Handle(id)
		if !ok {
			continue
		}
		ctrl, ok := h.(*handle.Controller)
		if !ok {
			continue
		}
		p := ctrl.Pty()
		live[p] = true
		if _, already := b.bridged[p]; already {
			continue
		}
		br, err := bridge.Open()
		if err != nil {
			logger.Warn("bridge open failed", "error", err)
			continue
		}
		logger.Info("bridged new pty", "peer", br.PeerPath())
		b.bridged[p] = br
	}

	for p, br := range b.bridged {
		if !live[p] {
			_ = br.Close()
			delete(b.bridged, p)
			continue
		}
		if err := br.Pump(p); err != nil {
			logger.Warn("bridge pump failed", "error", err)
			_ = br.Close()
			delete(b.bridged, p)
		}
	}
}
