// Command agentd runs a single agent over the HTTP transport, so the
// office can be spread across processes or hosts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/office-mas/office-multi-agent/agent"
	"github.com/office-mas/office-multi-agent/audit"
	"github.com/office-mas/office-multi-agent/config"
	"github.com/office-mas/office-multi-agent/history"
	"github.com/office-mas/office-multi-agent/llm"
	"github.com/office-mas/office-multi-agent/logger"
	"github.com/office-mas/office-multi-agent/registry"
	"github.com/office-mas/office-multi-agent/transport"
)

func buildRole(name string) (agent.Role, error) {
	switch name {
	case "provider":
		return &agent.ProviderRole{
			Item:       config.ProviderItem(),
			DefaultQty: config.ProviderDefaultQty(),
			Delay:      config.ProviderDelay(),
		}, nil
	case "coordinator":
		return agent.CoordinatorRole{}, nil
	case "reporter":
		return &agent.ReporterRole{Sink: audit.NewFileSink(config.AuditDir() + "/reports")}, nil
	case "human":
		return &agent.ConsoleRole{Quit: make(chan struct{})}, nil
	case "requester":
		return &agent.RequesterRole{
			OrderText: config.OrderText(),
			To:        config.GetEnv("ORDER_TO", ""),
			Observer:  config.GetEnv("ORDER_OBSERVER", ""),
			Deadline:  config.ReplyByWindow(),
		}, nil
	}
	return nil, fmt.Errorf("unknown role %q", name)
}

func main() {
	alias := flag.String("alias", "", "agent alias (required)")
	listen := flag.String("listen", "127.0.0.1:8100", "host:port to serve on")
	roleName := flag.String("role", "", "provider|coordinator|reporter|human|requester")
	rosterPath := flag.String("roster", "", "YAML roster pre-registering peers")
	flag.Parse()

	config.LoadEnv()
	log := logger.GetLogger()
	if lvl, err := logger.ParseLevel(config.GetEnv("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(lvl)
	}
	if *alias == "" {
		fmt.Fprintln(os.Stderr, "-alias is required")
		os.Exit(1)
	}
	if *roleName == "" {
		*roleName = config.RoleFor(*alias, "provider")
	}
	role, err := buildRole(*roleName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	reg := registry.New(registry.WithDumpPath(config.RegistryDumpPath()))
	if *rosterPath != "" {
		roster, err := config.LoadRoster(*rosterPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "roster:", err)
			os.Exit(1)
		}
		for a, e := range roster.Agents {
			reg.Register(a, registry.Descriptor{
				Alias: a, Endpoint: e.Endpoint, Class: "agent",
				Role: e.Role, Character: e.Character,
			})
		}
	}

	ep, err := transport.NewHTTPEndpoint(*listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, "transport:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var planner *llm.Planner
	if config.AutoAI() {
		if client, err := llm.NewLangChainFromEnv(ctx); err == nil {
			planner, _ = llm.NewPlanner(client,
				llm.WithStageWriter(audit.NewStageWriter(config.AuditDir())))
		} else {
			log.Warnf("reasoning backend unavailable: %v", err)
		}
	}

	a := agent.New(role, agent.Options{
		Alias:     *alias,
		Character: config.CharacterFor(*alias, ""),
		Endpoint:  ep,
		Registry:  reg,
		History:   history.NewStore(config.HistoryLimit()),
		Audit:     audit.NewFileSink(config.AuditDir()),
		Planner:   planner,
		AutoAI:    config.AutoAI(),
		Allowlist: config.Allowlist(),
	})
	a.Start(ctx)
	defer a.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	if console, ok := role.(*agent.ConsoleRole); ok {
		select {
		case <-sig:
		case <-console.Quit:
		}
		return
	}
	<-sig
}
