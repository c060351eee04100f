// Command office runs the whole agent office in one process over the
// in-proc bus: console bridge, coordinator, provider and reporter, with
// an optional scripted requester.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/office-mas/office-multi-agent/agent"
	"github.com/office-mas/office-multi-agent/audit"
	"github.com/office-mas/office-multi-agent/config"
	"github.com/office-mas/office-multi-agent/history"
	"github.com/office-mas/office-multi-agent/llm"
	"github.com/office-mas/office-multi-agent/logger"
	"github.com/office-mas/office-multi-agent/registry"
	"github.com/office-mas/office-multi-agent/transport"
)

func main() {
	order := flag.Bool("order", false, "run a scripted requester sending ORDER_TEXT")
	rosterPath := flag.String("roster", "", "optional YAML roster to pre-register peers")
	wsPort := flag.Int("ws", 0, "optional websocket port streaming audit records")
	flag.Parse()

	config.LoadEnv()
	if err := config.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.GetLogger()
	if lvl, err := logger.ParseLevel(config.GetEnv("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(lvl)
	}

	reg := registry.New(registry.WithDumpPath(config.RegistryDumpPath()))
	hist := history.NewStore(config.HistoryLimit())

	var sink audit.Sink = audit.NewFileSink(config.AuditDir())
	if *wsPort > 0 {
		stream := audit.NewStreamServer(*wsPort)
		if err := stream.Start(); err != nil {
			log.Error("audit stream not started", err)
		} else {
			defer stream.Stop()
			sink = audit.MultiSink{sink, stream}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var planner *llm.Planner
	if config.AutoAI() {
		client, err := llm.NewLangChainFromEnv(ctx)
		if err != nil {
			log.Warnf("reasoning backend unavailable, roles run rule-only: %v", err)
		} else {
			planner, err = llm.NewPlanner(client,
				llm.WithStageWriter(audit.NewStageWriter(config.AuditDir())))
			if err != nil {
				log.Error("planner init failed", err)
				planner = nil
			}
		}
	}

	if *rosterPath != "" {
		roster, err := config.LoadRoster(*rosterPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "roster:", err)
			os.Exit(1)
		}
		for alias, e := range roster.Agents {
			reg.Register(alias, registry.Descriptor{
				Alias: alias, Endpoint: e.Endpoint, Class: "agent",
				Role: e.Role, Character: e.Character,
			})
		}
	}

	bus := transport.NewInProcBus(0)
	newAgent := func(alias, defaultChar string, role agent.Role) *agent.BaseAgent {
		return agent.New(role, agent.Options{
			Alias:     alias,
			Character: config.CharacterFor(alias, defaultChar),
			Endpoint:  bus.Endpoint(alias),
			Registry:  reg,
			History:   hist,
			Audit:     sink,
			Planner:   planner,
			AutoAI:    config.AutoAI(),
			Allowlist: config.Allowlist(),
		})
	}

	console := &agent.ConsoleRole{Quit: make(chan struct{})}
	provider := &agent.ProviderRole{
		Item:       config.ProviderItem(),
		DefaultQty: config.ProviderDefaultQty(),
		Delay:      config.ProviderDelay(),
	}
	reporter := &agent.ReporterRole{Sink: audit.NewFileSink(config.AuditDir() + "/reports")}

	agents := []*agent.BaseAgent{
		newAgent("provider", "piekarnia, sprzedaję bułki i chleb", provider),
		newAgent("coordinator", "biuro obsługi, kieruję zamówienia", agent.CoordinatorRole{}),
		newAgent("reporter", "archiwista, zapisuję podsumowania", reporter),
		newAgent("human", "człowiek przy konsoli", console),
	}

	var requester *agent.RequesterRole
	if *order {
		requester = &agent.RequesterRole{
			OrderText: config.OrderText(),
			To:        "coordinator",
			Observer:  "reporter",
			Deadline:  config.ReplyByWindow(),
		}
		agents = append(agents, newAgent("requester", "zamawiam śniadanie dla biura", requester))
	}

	for _, a := range agents {
		a.Start(ctx)
	}
	defer func() {
		for _, a := range agents {
			a.Stop()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	if requester != nil {
		tick := time.NewTicker(200 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-sig:
				return
			case <-console.Quit:
				return
			case <-tick.C:
				if outcome, done := requester.Outcome(); done {
					log.Infof("order finished: %s", outcome)
					return
				}
			}
		}
	}

	select {
	case <-sig:
	case <-console.Quit:
	}
}
