// Command epihiper runs one partition process of a simulation: it loads a
// run-parameter document and the model-scenario documents it references,
// builds this rank's partition of the contact network, and runs the tick
// loop to completion (spec.md §6 "CLI tools").
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/epihiper-go/epihiper/internal/actions"
	"github.com/epihiper-go/epihiper/internal/config"
	"github.com/epihiper-go/epihiper/internal/diseasemodel"
	"github.com/epihiper-go/epihiper/internal/distribution"
	"github.com/epihiper-go/epihiper/internal/driver"
	"github.com/epihiper-go/epihiper/internal/intervention"
	"github.com/epihiper-go/epihiper/internal/logging"
	"github.com/epihiper-go/epihiper/internal/network"
	"github.com/epihiper-go/epihiper/internal/persontraits"
	"github.com/epihiper-go/epihiper/internal/sets"
	"github.com/epihiper-go/epihiper/internal/traits"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var rank int
	var peers []string

	cmd := &cobra.Command{
		Use:   "epihiper",
		Short: "Run one partition process of an EpiHiper simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath, rank, peers)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the run-parameter JSON document")
	cmd.Flags().IntVar(&rank, "rank", 0, "this process's partition rank, for multi-process runs")
	cmd.Flags().StringSliceVar(&peers, "peer", nil, "host:port of every rank's gRPC endpoint, in rank order (omit for a single-process run)")
	cmd.MarkFlagRequired("config")
	return cmd
}

func run(ctx context.Context, configPath string, rank int, peers []string) error {
	flag := &logging.Flag{}

	rp, err := config.LoadRunParameters(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(rp.LogLevel, flag)
	status := logging.NewStatusWriter(rp.Status)

	ms, err := config.LoadModelScenario(rp.ModelScenario)
	if err != nil {
		return err
	}

	model, err := diseasemodel.LoadModel(ms.DiseaseModel)
	if err != nil {
		return errors.Wrap(err, "epihiper: disease model")
	}

	netFile, err := os.Open(ms.ContactNetwork)
	if err != nil {
		return errors.Wrap(err, "epihiper: contact network")
	}
	preamble, edges, err := network.LoadText(netFile)
	netFile.Close()
	if err != nil {
		return errors.Wrap(err, "epihiper: contact network")
	}

	transport, err := buildTransport(ctx, rank, peers)
	if err != nil {
		return err
	}

	numParts := len(peers)
	if numParts == 0 {
		numParts = 1
	}
	boundaries := network.Boundaries(edges, numParts)
	agreed, err := distribution.BroadcastBoundaries(ctx, transport, boundaries)
	if err != nil {
		return errors.Wrap(err, "epihiper: agree on partition boundaries")
	}
	partitions := network.BuildPartitions(edges, agreed.Boundaries, preamble.SourceOnlyNodes)
	if rank >= len(partitions) {
		return errors.Errorf("epihiper: rank %d has no partition among %d", rank, len(partitions))
	}
	partition := partitions[rank]

	reg := sets.NewRegistry()
	for _, p := range ms.Sets {
		if _, err := sets.LoadSets(p, reg); err != nil {
			return errors.Wrap(err, "epihiper: set definitions")
		}
	}

	var codec *traits.Codec
	if ms.Traits != "" {
		codec, err = traits.LoadSchema(ms.Traits)
		if err != nil {
			return errors.Wrap(err, "epihiper: trait schema")
		}
	}

	meterProvider := sdkmetric.NewMeterProvider()
	defer meterProvider.Shutdown(ctx)

	cfg := driver.Config{
		Name:           rp.ModelScenario,
		Partition:      partition,
		Model:          model,
		Sets:           reg,
		TraitCodec:     codec,
		Transport:      transport,
		Logger:         logger,
		Status:         status,
		StartTick:      rp.StartTick,
		EndTick:        rp.EndTick,
		Replicate:      rp.Replicate,
		TimeResolution: 1,
		Reseed:         reseedMap(rp.Reseed),
		Interventions:  map[string]intervention.Intervention{},
		Meter:          meterProvider.Meter("github.com/epihiper-go/epihiper/cmd/epihiper"),
	}

	for _, p := range ms.Initialization {
		doc, err := intervention.LoadDocument(p, reg)
		if err != nil {
			return errors.Wrap(err, "epihiper: initialization document")
		}
		mergeDocument(&cfg, doc)
	}
	for _, p := range ms.Intervention {
		doc, err := intervention.LoadDocument(p, reg)
		if err != nil {
			return errors.Wrap(err, "epihiper: intervention document")
		}
		mergeDocument(&cfg, doc)
	}
	cfg.RequestedComputables = collectComputables(cfg.Triggers, cfg.Initializations, cfg.Interventions)

	if len(ms.PersonTraitDB) > 0 {
		fetcher, err := persontraits.OpenSQLiteFetcher(ms.PersonTraitDB[0], persontraits.DefaultRetryPolicy())
		if err != nil {
			return errors.Wrap(err, "epihiper: person-trait database")
		}
		cfg.Fetcher = fetcher
	}

	if rp.Output != "" {
		f, err := os.Create(rp.Output)
		if err != nil {
			return errors.Wrap(err, "epihiper: output")
		}
		defer f.Close()
		cfg.ChangeOut = f
	}
	if rp.SummaryOutput != "" {
		f, err := os.Create(rp.SummaryOutput)
		if err != nil {
			return errors.Wrap(err, "epihiper: summary output")
		}
		defer f.Close()
		cfg.GlobalStateOut = f
	}
	if rp.DumpActiveNetwork != nil {
		dp := rp.DumpActiveNetwork
		f, err := os.Create(dp.Output)
		if err != nil {
			return errors.Wrap(err, "epihiper: active network dump")
		}
		defer f.Close()
		cfg.ActiveDumpOut = f
		cfg.ActiveDump = &driver.ActiveDumpPolicy{
			Threshold:     dp.Threshold,
			StartTick:     dp.StartTick,
			EndTick:       dp.EndTick,
			TickIncrement: dp.TickIncrement,
		}
	}

	d, err := driver.New(cfg)
	if err != nil {
		return err
	}
	if err := d.Run(ctx); err != nil {
		return err
	}
	if flag.IsSet() {
		return errors.New("epihiper: run completed with a fatal error recorded")
	}
	return nil
}

// buildTransport selects the single-process loopback transport when no
// peers are given, otherwise starts this rank's gRPC server listening on
// its own peers[rank] address before returning, so a peer dialing in
// immediately after every process starts never races the listener (spec.md
// §5 "one process per partition ... exchange via a transport abstraction").
func buildTransport(ctx context.Context, rank int, peers []string) (distribution.Transport, error) {
	if len(peers) == 0 {
		return distribution.NewLoopbackGroup(1)[0], nil
	}
	if rank >= len(peers) {
		return nil, errors.Errorf("epihiper: rank %d has no entry among %d peers", rank, len(peers))
	}
	t := distribution.NewGRPCTransport(rank, peers)
	lis, err := net.Listen("tcp", peers[rank])
	if err != nil {
		return nil, errors.Wrapf(err, "epihiper: listen on %s", peers[rank])
	}
	server := t.NewServer()
	go server.Serve(lis)
	go func() {
		<-ctx.Done()
		server.Stop()
	}()
	return t, nil
}

func reseedMap(points []config.ReseedPoint) map[int64]int64 {
	if len(points) == 0 {
		return nil
	}
	m := make(map[int64]int64, len(points))
	for _, p := range points {
		m[p.Tick] = p.Seed
	}
	return m
}

func mergeDocument(cfg *driver.Config, doc *intervention.Document) {
	cfg.Initializations = append(cfg.Initializations, doc.Initializations...)
	for _, iv := range doc.Interventions {
		cfg.Interventions[iv.ID] = iv
	}
	cfg.Triggers = append(cfg.Triggers, doc.Triggers...)
}

// collectComputables scans every condition a trigger evaluates for
// "obs:"/"set:"-prefixed references and every initialization/intervention
// target that names a registered set, building the minimal computable set
// C7's dependency graph must keep fresh (spec.md §4.4).
func collectComputables(triggers []intervention.Trigger, inits []intervention.Initialization, ivs map[string]intervention.Intervention) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	var walk func(c actions.Condition)
	walk = func(c actions.Condition) {
		if strings.HasPrefix(c.LeftRef, "obs:") || strings.HasPrefix(c.LeftRef, "set:") {
			add(c.LeftRef)
		}
		for _, o := range c.Operands {
			walk(o)
		}
	}
	for _, t := range triggers {
		walk(t.Condition)
	}
	addTarget := func(s *sets.Set) {
		if s != nil && s.Kind == sets.KindReference {
			add(fmt.Sprintf("set:%s", s.RefID))
		}
	}
	for _, init := range inits {
		addTarget(init.Target)
	}
	for _, iv := range ivs {
		addTarget(iv.Target)
	}
	return out
}
