// Package driver implements C11: the fixed-phase tick loop that wires
// together every other component (spec.md §4.8, §5). It is grounded on
// the teacher's Simulation/Simulator interfaces (simulation.go, si_simulator.go):
// Run calls Update/Process/Transmit in a fixed order once per generation,
// dispatching per-host-status processing. The driver generalizes that
// three-phase, single-process loop into the specification's eight-phase,
// multi-partition one: update -> transmit -> trigger -> intervene ->
// action-drain -> sync -> log -> broadcast.
package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/epihiper-go/epihiper/internal/actions"
	"github.com/epihiper-go/epihiper/internal/changelog"
	"github.com/epihiper-go/epihiper/internal/dependency"
	"github.com/epihiper-go/epihiper/internal/diseasemodel"
	"github.com/epihiper-go/epihiper/internal/distribution"
	"github.com/epihiper-go/epihiper/internal/intervention"
	"github.com/epihiper-go/epihiper/internal/logging"
	"github.com/epihiper-go/epihiper/internal/network"
	"github.com/epihiper-go/epihiper/internal/observable"
	"github.com/epihiper-go/epihiper/internal/persontraits"
	"github.com/epihiper-go/epihiper/internal/randstream"
	"github.com/epihiper-go/epihiper/internal/sets"
	"github.com/epihiper-go/epihiper/internal/traits"
	"github.com/epihiper-go/epihiper/internal/variables"
)

// Config wires one partition process's full set of collaborators into a
// Driver. Unset optional fields fall back to harmless no-ops, so a
// single-partition test can build a minimal Config.
type Config struct {
	Name      string
	Partition *network.Partition
	Model     *diseasemodel.Model

	Variables   *variables.Registry
	Observables *observable.Registry
	Sets        *sets.Registry
	Graph       *dependency.Graph
	Queue       *actions.Queue
	TraitCodec  *traits.Codec

	Transport distribution.Transport
	Stream    *randstream.Stream
	Fetcher   persontraits.Fetcher

	Logger *logging.Logger
	Status *logging.StatusWriter
	Meter  metric.Meter

	ChangeOut      io.Writer
	GlobalStateOut io.Writer
	ActiveDumpOut  io.Writer
	ActiveDump     *ActiveDumpPolicy

	StartTick      int64
	EndTick        int64
	Replicate      int
	TimeResolution float64
	Reseed         map[int64]int64

	Initializations []intervention.Initialization
	Interventions   map[string]intervention.Intervention
	Triggers        []intervention.Trigger

	// RequestedComputables lists every "set:<name>" / "obs:<name>" node
	// C7's dependency graph should keep fresh each tick (spec.md §4.4).
	RequestedComputables []string

	PersonTraitQueries []string
}

// ActiveDumpPolicy configures the optional per-tick active-subgraph dump
// named in the run parameters (spec.md §6 "dumpActiveNetwork").
type ActiveDumpPolicy struct {
	Threshold     int
	StartTick     int64
	EndTick       int64
	TickIncrement int64
}

// Driver runs one partition process's tick loop.
type Driver struct {
	Config

	world   *partitionWorld
	lookup  *tickLookup
	exec    *tickExecutor
	runID   string
	current int64

	changeBuf *changelog.Buffer

	tickIn, tickOut, cumIn, cumOut []int64

	setContents map[string]*sets.Content
	outbox      []actions.Action

	tickDuration   metric.Float64Histogram
	ticksProcessed metric.Int64Counter
}

// CurrentTick returns the tick the driver is currently on or just
// finished; the underlying field is unexported so only the driver's own
// phases can advance it.
func (d *Driver) CurrentTick() int64 { return d.current }

// New validates cfg and builds a Driver ready to Run.
func New(cfg Config) (*Driver, error) {
	if cfg.Partition == nil {
		return nil, errors.New("driver: Partition is required")
	}
	if cfg.Model == nil {
		return nil, errors.New("driver: Model is required")
	}
	if err := cfg.Model.Validate(); err != nil {
		return nil, errors.Wrap(err, "driver: invalid disease model")
	}
	if cfg.Variables == nil {
		cfg.Variables = variables.NewRegistry()
	}
	if cfg.Observables == nil {
		cfg.Observables = observable.NewRegistry()
	}
	if cfg.Sets == nil {
		cfg.Sets = sets.NewRegistry()
	}
	if cfg.Graph == nil {
		cfg.Graph = dependency.NewGraph()
	}
	if cfg.Queue == nil {
		cfg.Queue = actions.NewQueue()
	}
	if cfg.Stream == nil {
		cfg.Stream = randstream.New(0, cfg.Replicate, cfg.Partition.Index, 0)
	}
	if cfg.Transport == nil {
		cfg.Transport = distribution.NewLoopbackGroup(1)[0]
	}
	if cfg.Interventions == nil {
		cfg.Interventions = map[string]intervention.Intervention{}
	}
	if cfg.Name == "" {
		cfg.Name = "epihiper"
	}
	if cfg.TimeResolution == 0 {
		cfg.TimeResolution = 1
	}
	meter := cfg.Meter
	if meter == nil {
		meter = otel.Meter("github.com/epihiper-go/epihiper/internal/driver")
	}

	numStates := len(cfg.Model.States)
	d := &Driver{
		Config:      cfg,
		runID:       ksuid.New().String(),
		current:     cfg.StartTick - 1,
		changeBuf:   changelog.NewBuffer(cfg.Partition.Index),
		tickIn:      make([]int64, numStates),
		tickOut:     make([]int64, numStates),
		cumIn:       make([]int64, numStates),
		cumOut:      make([]int64, numStates),
		setContents: make(map[string]*sets.Content),
	}
	d.world = &partitionWorld{part: cfg.Partition, traits: loadTraitRows(cfg.Fetcher, cfg.PersonTraitQueries)}
	d.lookup = &tickLookup{d: d}
	d.exec = &tickExecutor{d: d}

	var err error
	d.tickDuration, err = meter.Float64Histogram("epihiper_tick_duration_seconds")
	if err != nil {
		return nil, errors.Wrap(err, "driver: register tick duration metric")
	}
	d.ticksProcessed, err = meter.Int64Counter("epihiper_ticks_processed")
	if err != nil {
		return nil, errors.Wrap(err, "driver: register tick counter metric")
	}
	return d, nil
}

func loadTraitRows(fetcher persontraits.Fetcher, queries []string) map[int64]map[string]any {
	rows := make(map[int64]map[string]any)
	if fetcher == nil {
		return rows
	}
	for _, q := range queries {
		result, err := fetcher.Rows(context.Background(), q)
		if err != nil {
			continue
		}
		for _, r := range result {
			rows[r.NodeID] = r.Fields
		}
	}
	return rows
}

// Run executes spec.md §4.8's fixed phase loop from StartTick-1 through
// EndTick, returning the first fatal error encountered (already reported
// to the logger, status writer, and distribution plane's abort primitive).
func (d *Driver) Run(ctx context.Context) error {
	if err := d.seedInitialStateCounts(ctx); err != nil {
		return d.fail(logging.ResourceError, err)
	}
	if err := d.computeOnce(); err != nil {
		return d.fail(logging.SemanticError, err)
	}
	if err := d.applyUpdateOrder(); err != nil {
		return d.fail(logging.RuntimeError, err)
	}
	if err := d.runInitializations(ctx); err != nil {
		return d.fail(logging.RuntimeError, err)
	}
	if err := d.drainActionQueue(ctx); err != nil {
		return d.fail(logging.RuntimeError, err)
	}
	if err := d.syncVariables(ctx); err != nil {
		return d.fail(logging.RuntimeError, err)
	}
	d.current++
	if err := d.writeTickOutputs(ctx); err != nil {
		return d.fail(logging.ResourceError, err)
	}

	for d.current <= d.EndTick {
		start := time.Now()

		if err := d.applyUpdateOrder(); err != nil {
			return d.fail(logging.RuntimeError, err)
		}
		if err := d.processTransmissions(); err != nil {
			return d.fail(logging.RuntimeError, err)
		}
		if err := d.evaluateTriggers(ctx); err != nil {
			return d.fail(logging.RuntimeError, err)
		}
		if err := d.drainActionQueue(ctx); err != nil {
			return d.fail(logging.RuntimeError, err)
		}
		if err := d.syncVariables(ctx); err != nil {
			return d.fail(logging.RuntimeError, err)
		}
		d.current++
		if err := d.writeTickOutputs(ctx); err != nil {
			return d.fail(logging.ResourceError, err)
		}
		d.maybeDumpActiveNetwork()
		if seed, ok := d.Reseed[d.current]; ok {
			d.Stream.Reseed(seed, d.Replicate, d.Partition.Index, 0)
		}

		d.tickDuration.Record(ctx, time.Since(start).Seconds())
		d.ticksProcessed.Add(ctx, 1)
	}

	return d.markCompleted()
}

// computeOnce runs the static "apply compute-once" pass spec.md §4.4
// names, evaluating every requested computable exactly one time.
func (d *Driver) computeOnce() error {
	return d.Graph.ApplyComputeOnce(d.RequestedComputables, d.computeNode)
}

// applyUpdateOrder invalidates everything, then refreshes requested
// computables in dependency order (spec.md §4.4 "thereafter applyUpdateOrder
// runs each tick").
func (d *Driver) applyUpdateOrder() error {
	d.Graph.MarkAllStale()
	d.Observables.Invalidate()
	return d.Graph.ApplyUpdateOrder(d.RequestedComputables, d.computeNode)
}

func (d *Driver) computeNode(name string) error {
	switch {
	case strings.HasPrefix(name, "obs:"):
		_, err := d.Observables.Refresh(strings.TrimPrefix(name, "obs:"), d.stateCountsSnapshot())
		return err
	case strings.HasPrefix(name, "set:"):
		setName := strings.TrimPrefix(name, "set:")
		s, ok := d.Sets.LookupRef(setName)
		if !ok {
			return errors.Errorf("driver: unresolved set reference %q", setName)
		}
		content, err := sets.Compute(s, d.world, d.Sets)
		if err != nil {
			return err
		}
		d.setContents[setName] = content
		return nil
	}
	// Variables carry their own value across ticks without an explicit
	// recompute step; BeginTick (syncVariables) is what moves them.
	return nil
}

func (d *Driver) stateCountsSnapshot() observable.StateCounts {
	numStates := len(d.Model.States)
	current := make([]int64, numStates)
	for i := range current {
		current[i] = d.cumIn[i] - d.cumOut[i]
	}
	total := int64(0)
	for _, c := range current {
		total += c
	}
	return observable.StateCounts{
		Tick:            d.current,
		TotalPopulation: total,
		Current:         current,
		In:              append([]int64(nil), d.cumIn...),
		Out:             append([]int64(nil), d.cumOut...),
	}
}

func (d *Driver) runInitializations(ctx context.Context) error {
	d.Variables.BeginTick()
	for _, init := range d.Initializations {
		if err := d.fireEnsemble(ctx, init.Target, &init.Ensemble); err != nil {
			return errors.Wrapf(err, "driver: initialization %q", init.Name)
		}
	}
	return nil
}

// processTransmissions implements spec.md §4.2's per-tick, per-node hazard
// draw over every local susceptible node, enqueuing a priority-1 action
// for each infection event (spec.md §4.8 "process transmissions // may
// enqueue priority-1 actions for current tick").
func (d *Driver) processTransmissions() error {
	local := d.Partition.LocalNodes()
	for i := range local {
		node := &d.Partition.Nodes[i]
		incoming := d.Partition.IncomingEdges(node.ID)
		if len(incoming) == 0 {
			continue
		}
		outcome := diseasemodel.TransmissionSample(
			d.Model, node, diseasemodel.State(node.HealthState), incoming,
			d.sourceOf, d.TimeResolution, d.Stream,
		)
		if !outcome.Infected {
			continue
		}
		ops := []actions.Operation{{
			Target:           actions.TargetHealthState,
			Op:               actions.OpAssign,
			Value:            float64(outcome.Firing.ExitState),
			NodeID:           node.ID,
			HasContactNodeID: true,
			ContactNodeID:    outcome.Source.ID,
		}}
		ops = append(ops, factorOps(outcome.Firing.NodeFactors, node.ID)...)
		ops = append(ops, factorOps(outcome.Firing.ContactFactors, outcome.Source.ID)...)
		d.Queue.Add(d.current, 0, actions.Action{
			Priority:   1,
			Condition:  actions.Condition{Kind: actions.CondAlways},
			Operations: ops,
		})
	}
	return nil
}

func (d *Driver) sourceOf(id int64) (*network.Node, diseasemodel.State, bool) {
	node, ok := d.Partition.LookupNode(id)
	if !ok {
		return nil, 0, false
	}
	return node, diseasemodel.State(node.HealthState), true
}

// scheduleProgression samples the next time-based self-transition out of
// state and enqueues it for the dwell-time-derived future tick (spec.md
// §4.2 "Progression scheduling").
func (d *Driver) scheduleProgression(nodeID int64, state int) {
	prog, ok := diseasemodel.SampleNextProgression(d.Model, diseasemodel.State(state), d.Stream)
	if !ok {
		return
	}
	dwell := diseasemodel.SampleDwell(prog.Dwell, d.Stream)
	delta := int64(dwell)
	if delta < 0 {
		delta = 0
	}
	ops := []actions.Operation{{
		Target: actions.TargetHealthState,
		Op:     actions.OpAssign,
		Value:  float64(prog.ExitState),
		NodeID: nodeID,
	}}
	ops = append(ops, factorOps(prog.NodeFactors, nodeID)...)
	d.Queue.Add(d.current, delta, actions.Action{
		Priority:   0,
		Condition:  actions.Condition{Kind: actions.CondAlways},
		Operations: ops,
	})
}

func factorOps(fs []diseasemodel.Factor, nodeID int64) []actions.Operation {
	out := make([]actions.Operation, 0, len(fs))
	for _, f := range fs {
		target := actions.TargetSusceptibilityFactor
		if f.Target == diseasemodel.TargetInfectivity {
			target = actions.TargetInfectivityFactor
		}
		var op actions.Operator
		switch f.Op {
		case diseasemodel.FactorAssign:
			op = actions.OpAssign
		case diseasemodel.FactorMultiply:
			op = actions.OpMultiply
		case diseasemodel.FactorDivide:
			op = actions.OpDivide
		}
		out = append(out, actions.Operation{Target: target, Op: op, Value: f.Value, NodeID: nodeID})
	}
	return out
}

// evaluateTriggers runs every trigger's condition locally, then ORs each
// one's vote across partitions before firing its interventions (spec.md
// §4.6 "a cross-partition OR collects 'triggered' bits").
func (d *Driver) evaluateTriggers(ctx context.Context) error {
	votes := make([]bool, len(d.Triggers))
	for i, trig := range d.Triggers {
		d.lookup.clearContextNode()
		ok, err := trig.Evaluate(d.lookup)
		if err != nil {
			return errors.Wrapf(err, "driver: trigger %q", trig.Name)
		}
		votes[i] = ok
	}
	for i, trig := range d.Triggers {
		local := 0.0
		if votes[i] {
			local = 1
		}
		total, err := d.Transport.Reduce(ctx, local, distribution.SumFloat64)
		if err != nil {
			return err
		}
		if total <= 0 {
			continue
		}
		for _, id := range trig.InterventionIDs {
			iv, ok := d.Interventions[id]
			if !ok {
				continue
			}
			if err := d.fireEnsemble(ctx, iv.Target, &iv.Ensemble); err != nil {
				return errors.Wrapf(err, "driver: intervention %q", id)
			}
		}
	}
	return nil
}

// fireEnsemble computes target's membership and expands ensemble against
// it into queued actions (spec.md §4.6). When the ensemble samples by
// absolute count, each partition's allowance is its proportional share of
// the requested amount against the cross-partition total target size —
// the distribution plane's single-value Reduce can't gather every
// partition's individual size for the exact largest-remainder allocation
// sets.AllocateMax performs within one partition.
func (d *Driver) fireEnsemble(ctx context.Context, target *sets.Set, ensemble *intervention.Ensemble) error {
	content, err := sets.Compute(target, d.world, d.Sets)
	if err != nil {
		return err
	}
	allowance := 0
	if ensemble.HasSampling && ensemble.Mode == intervention.SamplingMaxCount {
		localSize := float64(len(content.Nodes))
		total, err := d.Transport.Reduce(ctx, localSize, distribution.SumFloat64)
		if err != nil {
			return err
		}
		if total > 0 {
			allowance = int(ensemble.Amount * localSize / total)
		}
	}
	produced := intervention.Build(ensemble, content, d.Stream, allowance)
	for _, action := range produced {
		d.Queue.Add(d.current, 0, action)
	}
	return nil
}

// drainActionQueue runs spec.md §4.5's processing loop: execute the local
// batch, ship remotely-targeted actions, absorb actions shipped to this
// partition, then repeat until no partition has anything left queued for
// the current tick.
func (d *Driver) drainActionQueue(ctx context.Context) error {
	for {
		if err := d.processOneRound(); err != nil {
			return err
		}
		if err := d.shipOutbox(ctx); err != nil {
			return err
		}
		if err := d.absorbInbox(ctx); err != nil {
			return err
		}
		local := float64(d.Queue.PendingCount(d.current))
		total, err := d.Transport.Reduce(ctx, local, distribution.SumFloat64)
		if err != nil {
			return err
		}
		if total == 0 {
			return nil
		}
	}
}

func (d *Driver) processOneRound() error {
	batch := d.Queue.Take(d.current)
	ordered := actions.GroupByPriority(batch, d.Stream)
	for _, action := range ordered {
		if action.Remote {
			d.outbox = append(d.outbox, action)
			continue
		}
		if id, ok := contextNodeOf(action); ok {
			d.lookup.setContextNode(id)
		} else {
			d.lookup.clearContextNode()
		}
		ok, err := actions.Evaluate(action.Condition, d.lookup)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, op := range action.Operations {
			if err := d.exec.Execute(op); err != nil {
				return err
			}
		}
	}
	return nil
}

type remoteActionPayload struct {
	Action actions.Action `json:"action"`
}

func (d *Driver) shipOutbox(ctx context.Context) error {
	for _, action := range d.outbox {
		payload, err := json.Marshal(remoteActionPayload{Action: action})
		if err != nil {
			return err
		}
		env := distribution.Envelope{Kind: distribution.KindRemoteAction, FromPID: d.Partition.Index, Payload: payload}
		if err := d.Transport.SendToRank(ctx, action.OwnerRank, env); err != nil {
			return err
		}
	}
	d.outbox = d.outbox[:0]
	return nil
}

func (d *Driver) absorbInbox(ctx context.Context) error {
	envs, err := d.Transport.Receive(ctx)
	if err != nil {
		return err
	}
	for _, env := range envs {
		switch env.Kind {
		case distribution.KindRemoteAction:
			var payload remoteActionPayload
			if err := json.Unmarshal(env.Payload, &payload); err != nil {
				return err
			}
			action := payload.Action
			action.Remote = false
			d.Queue.Add(d.current, 0, action)
		case distribution.KindChangeRecords:
			if err := d.applyRemoteNodeChanges(env.Payload); err != nil {
				return err
			}
		case distribution.KindAbort:
			return errors.New("driver: aborted by peer partition")
		}
	}
	return nil
}

// syncVariables folds every global variable's pending local delta together
// with every other partition's via the distribution plane's reduction
// primitive (spec.md §4.8 "sync variables").
func (d *Driver) syncVariables(ctx context.Context) error {
	for _, name := range d.Variables.Names() {
		v, ok := d.Variables.Lookup(name)
		if !ok || v.Scope != variables.ScopeGlobal {
			continue
		}
		localDelta, err := d.Variables.PendingDelta(name)
		if err != nil {
			return err
		}
		total, err := d.Transport.Reduce(ctx, localDelta, distribution.SumFloat64)
		if err != nil {
			return err
		}
		if err := d.Variables.Reduce(name, nil, func(current, _ float64, _ []float64) float64 {
			return current + total
		}); err != nil {
			return err
		}
	}
	return nil
}

// seedInitialStateCounts reduces every local node's initial health state
// across partitions into d.cumIn, so the first tick boundary's current(S) =
// cumIn(S) - cumOut(S) reports the population's starting distribution
// instead of zero, per spec.md §3/§8 property 2 (Σ_S current(S) =
// totalPopulation at every tick, including the first).
func (d *Driver) seedInitialStateCounts(ctx context.Context) error {
	numStates := len(d.Model.States)
	local := make([]int64, numStates)
	for _, n := range d.Partition.LocalNodes() {
		local[n.HealthState]++
	}
	for s := 0; s < numStates; s++ {
		total, err := d.Transport.Reduce(ctx, float64(local[s]), distribution.SumFloat64)
		if err != nil {
			return err
		}
		d.cumIn[s] = int64(total)
	}
	return nil
}

// writeTickOutputs flushes the change log, reduces this tick's in/out
// counts across partitions into the running totals, writes those totals
// (cumulative in, out and current = in - out) as the global state-count
// row, and broadcasts node changes to interested partitions (spec.md
// §4.8, §4.7).
func (d *Driver) writeTickOutputs(ctx context.Context) error {
	if d.ChangeOut != nil {
		if err := d.changeBuf.Flush(d.ChangeOut); err != nil {
			return err
		}
	}

	numStates := len(d.Model.States)
	in := make([]int64, numStates)
	out := make([]int64, numStates)
	current := make([]int64, numStates)
	for s := 0; s < numStates; s++ {
		inTotal, err := d.Transport.Reduce(ctx, float64(d.tickIn[s]), distribution.SumFloat64)
		if err != nil {
			return err
		}
		outTotal, err := d.Transport.Reduce(ctx, float64(d.tickOut[s]), distribution.SumFloat64)
		if err != nil {
			return err
		}
		in[s], out[s] = int64(inTotal), int64(outTotal)
		d.cumIn[s] += in[s]
		d.cumOut[s] += out[s]
		current[s] = d.cumIn[s] - d.cumOut[s]
		d.tickIn[s], d.tickOut[s] = 0, 0
	}

	counts := changelog.GlobalStateCounts{
		Tick:    d.current,
		In:      append([]int64(nil), d.cumIn...),
		Out:     append([]int64(nil), d.cumOut...),
		Current: current,
	}
	if !counts.Conserves() {
		return errors.Errorf("driver: state counts fail to conserve at tick %d", d.current)
	}
	if d.GlobalStateOut != nil {
		if err := counts.WriteCSV(d.GlobalStateOut); err != nil {
			return err
		}
	}

	if err := d.broadcastNodeChanges(ctx); err != nil {
		return err
	}
	return d.writeStatus(logging.StatusRunning)
}

func (d *Driver) broadcastNodeChanges(ctx context.Context) error {
	for rank, ids := range d.Partition.RemoteInterest {
		var changed []network.Node
		for _, id := range ids {
			if node, ok := d.Partition.LookupNode(id); ok && node.Dirty {
				changed = append(changed, *node)
			}
		}
		if len(changed) == 0 {
			continue
		}
		payload, err := json.Marshal(changed)
		if err != nil {
			return err
		}
		env := distribution.Envelope{Kind: distribution.KindChangeRecords, FromPID: d.Partition.Index, Payload: payload}
		if err := d.Transport.SendToRank(ctx, rank, env); err != nil {
			return err
		}
	}
	for i := range d.Partition.Nodes {
		d.Partition.Nodes[i].Dirty = false
	}
	envs, err := d.Transport.Receive(ctx)
	if err != nil {
		return err
	}
	for _, env := range envs {
		if env.Kind != distribution.KindChangeRecords {
			continue
		}
		if err := d.applyRemoteNodeChanges(env.Payload); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) applyRemoteNodeChanges(payload json.RawMessage) error {
	var changed []network.Node
	if err := json.Unmarshal(payload, &changed); err != nil {
		return err
	}
	for _, c := range changed {
		if node, ok := d.Partition.LookupNode(c.ID); ok && node.Remote {
			node.HealthState = c.HealthState
			node.Susceptibility = c.Susceptibility
			node.Infectivity = c.Infectivity
			node.Traits = c.Traits
		}
	}
	return nil
}

// maybeDumpActiveNetwork writes the current tick's active-edge subgraph
// when the optional policy's window and cadence select this tick (spec.md
// §6 "dumpActiveNetwork").
func (d *Driver) maybeDumpActiveNetwork() {
	p := d.ActiveDump
	if p == nil || d.ActiveDumpOut == nil {
		return
	}
	if d.current < p.StartTick || d.current > p.EndTick {
		return
	}
	increment := p.TickIncrement
	if increment <= 0 {
		increment = 1
	}
	if (d.current-p.StartTick)%increment != 0 {
		return
	}
	var buf strings.Builder
	for _, e := range d.Partition.Edges {
		if !e.IsActive() {
			continue
		}
		fmt.Fprintf(&buf, "%d,%d\n", e.Target, e.Source)
	}
	d.ActiveDumpOut.Write([]byte(buf.String()))
}

func (d *Driver) writeStatus(status string) error {
	if d.Status == nil {
		return nil
	}
	progress := 0
	if d.EndTick > d.StartTick {
		elapsed := d.current - d.StartTick
		if elapsed < 0 {
			elapsed = 0
		}
		progress = int(100 * float64(elapsed) / float64(d.EndTick-d.StartTick))
	}
	detail := fmt.Sprintf("%s: Running", d.Name)
	switch status {
	case logging.StatusCompleted:
		detail = fmt.Sprintf("%s: Completed", d.Name)
	case logging.StatusFailed:
		detail = fmt.Sprintf("%s: Failed", d.Name)
	}
	return d.Status.Write(logging.RunStatus{ID: d.runID, Name: d.Name, Status: status, Progress: progress, Detail: detail})
}

func (d *Driver) markCompleted() error {
	return d.writeStatus(logging.StatusCompleted)
}

func (d *Driver) fail(kind logging.Kind, err error) error {
	if d.Logger != nil {
		d.Logger.Error(kind, "tick loop aborted", logrus.Fields{"tick": d.current, "error": err.Error()})
	}
	if d.Transport != nil {
		d.Transport.Abort(err.Error())
	}
	d.writeStatus(logging.StatusFailed)
	return err
}
