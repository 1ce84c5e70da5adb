// Package sim wires the Config, Logger, Resource Manager, Scheduler,
// Loader, and Process Executor into one Simulation per config file (spec
// §9), and renders the post-run summary table.
package sim

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"github.com/opsim/simulator/internal/config"
	"github.com/opsim/simulator/internal/executor"
	"github.com/opsim/simulator/internal/loader"
	"github.com/opsim/simulator/internal/metadata"
	"github.com/opsim/simulator/internal/process"
	"github.com/opsim/simulator/internal/resource"
	"github.com/opsim/simulator/internal/scheduler"
	"github.com/opsim/simulator/internal/simlog"
)

// Simulation owns every component needed to run one config file's meta-
// data program to completion (spec §9's "Mutable global state... should
// be re-architected as explicit context objects" redesign flag).
type Simulation struct {
	id  uuid.UUID
	cfg config.Config

	clock   *simlog.RealClock
	logger  *simlog.Logger
	devices *resource.Manager
	sched   *scheduler.Scheduler
	exec    *executor.Executor
	memory  *MemoryCursor

	processes []*process.Process
}

// New constructs a Simulation from a parsed Config. monitor is the
// destination for monitor-sink log lines (typically os.Stdout); a log
// file is opened here when the config names File or Both as the sink.
func New(cfg config.Config, monitor io.Writer) (*Simulation, error) {
	var file *os.File
	if cfg.LogSink == config.LogFile || cfg.LogSink == config.LogBoth {
		f, err := os.Create(cfg.LogFilePath)
		if err != nil {
			return nil, fmt.Errorf("%w: opening log file %q: %v", ErrConfig, cfg.LogFilePath, err)
		}
		file = f
	}

	var sink simlog.Sink
	switch cfg.LogSink {
	case config.LogMonitor:
		sink = simlog.Monitor
	case config.LogFile:
		sink = simlog.File
	case config.LogBoth:
		sink = simlog.Both
	default:
		if file != nil {
			file.Close()
		}
		return nil, fmt.Errorf("%w: unrecognized log sink %v", ErrConfig, cfg.LogSink)
	}

	clock := simlog.NewRealClock()
	logger := simlog.New(sink, monitor, file, clock)

	devices := resource.New(cfg.HardDriveQuantity, cfg.ProjectorQuantity)
	sched := scheduler.New(scheduler.PolicyFromConfig(cfg.CPUSchedulingCode), cfg.ProcessorQuantum)
	memory := NewMemoryCursor(cfg.SystemMemoryKB, cfg.MemoryBlockSizeKB)
	exec := executor.New(sched, devices, logger, memory)

	return &Simulation{
		id:      uuid.New(),
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
		devices: devices,
		sched:   sched,
		exec:    exec,
		memory:  memory,
	}, nil
}

// ID returns the UUID stamped on this run, surfaced to the diagnostic
// stream by cmd/simulator so concurrent batch runs can be told apart.
func (s *Simulation) ID() uuid.UUID { return s.id }

// Close releases the log file, if one was opened.
func (s *Simulation) Close() error { return s.logger.Close() }

// Run parses the configured meta-data file, builds its processes, and
// drives them to completion under the configured scheduling policy (spec
// §9). It blocks until every process has terminated or ctx is canceled.
func (s *Simulation) Run(ctx context.Context) error {
	f, err := os.Open(s.cfg.MetaDataPath)
	if err != nil {
		return fmt.Errorf("%w: opening meta-data file %q: %v", ErrMetaData, s.cfg.MetaDataPath, err)
	}
	defer f.Close()

	instructions, err := metadata.Parse(f, s.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMetaData, err)
	}

	program, err := process.Build(instructions)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMetaData, err)
	}
	s.processes = program.Processes
	s.sched.SeedWaiting(s.processes)

	s.exec.HandleSystemBegin()

	ld := loader.New(s.sched, loader.DefaultIntervalMs, func() {
		s.logger.Log("process admitted to ready queue")
	})
	loaderCtx, cancelLoader := context.WithCancel(ctx)
	loaderDone := make(chan struct{})
	go func() {
		ld.Run(loaderCtx)
		close(loaderDone)
	}()

	runErr := s.dispatchLoop(ctx)

	cancelLoader()
	<-loaderDone

	if runErr != nil {
		return runErr
	}
	s.exec.HandleSystemFinish()
	return nil
}

// dispatchLoop repeatedly pops the ready head and runs it to completion or
// preemption, polling briefly when ready is momentarily empty because the
// Loader has not yet admitted the next waiting process (spec §5's
// "suspension points... inside the loader between admissions").
func (s *Simulation) dispatchLoop(ctx context.Context) error {
	remaining := len(s.processes)
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrRuntime, ctx.Err())
		default:
		}

		p := s.sched.DispatchNext()
		if p == nil {
			time.Sleep(time.Millisecond)
			continue
		}

		yielded, err := s.exec.Run(ctx, p)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRuntime, err)
		}
		if !yielded {
			s.sched.FinishRunning(p)
			remaining--
		}
	}
	return nil
}

// WriteSummary renders the end-of-run PCB table (SPEC_FULL §4 supplement,
// recovered from the original coursework's end-of-program statistics
// dump) to w. Call after Run returns.
func (s *Simulation) WriteSummary(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"PID", "State", "Duration (ms)", "Memory Blocks"})
	for _, p := range s.processes {
		table.Append([]string{
			strconv.Itoa(p.PID),
			p.PCB.State().String(),
			fmt.Sprintf("%.0f", p.PCB.ProcessDuration()),
			strconv.Itoa(p.PCB.BlockCount()),
		})
	}
	table.Render()
}
