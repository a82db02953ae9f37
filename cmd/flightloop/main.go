package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/skyward-labs/flightloop/internal/axis"
	"github.com/skyward-labs/flightloop/internal/config"
	"github.com/skyward-labs/flightloop/internal/control"
	"github.com/skyward-labs/flightloop/internal/loop"
	"github.com/skyward-labs/flightloop/internal/plant"
	"github.com/skyward-labs/flightloop/internal/telemetry"
	"github.com/skyward-labs/flightloop/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	duration   float64
	periodMS   int
	altTarget  float64
	hdgTarget  float64
	spdTarget  float64
	seed       int64
	realtime   bool
	field      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flightloop",
		Short: "fixed-period autopilot control loop with sensor failover",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".flightloop", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "fly the simulated plant and record the run",
		RunE:  runFlight,
	}
	runCmd.Flags().Float64Var(&duration, "time", 60.0, "flight duration (seconds)")
	runCmd.Flags().IntVar(&periodMS, "period", config.DefaultPeriodMS, "cycle period (ms)")
	runCmd.Flags().Float64Var(&altTarget, "alt", 30000, "target altitude (ft)")
	runCmd.Flags().Float64Var(&hdgTarget, "hdg", 90, "target heading (deg)")
	runCmd.Flags().Float64Var(&spdTarget, "spd", 450, "target speed (kts)")
	runCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "run against the wall clock (stop with ctrl-c)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "fly with a live terminal view",
		RunE:  runLive,
	}
	liveCmd.Flags().IntVar(&periodMS, "period", config.DefaultPeriodMS, "cycle period (ms)")
	liveCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	liveCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	liveCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one column of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&field, "field", "alt_meas", "column to plot (see cycles.csv header)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig layers preset, config file and CLI flags, flags last.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		c := *p
		cfg = &c
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("period") {
		cfg.PeriodMS = periodMS
	}
	if cmd.Flags().Lookup("alt") != nil {
		if cmd.Flags().Changed("alt") {
			cfg.Altitude.Target = altTarget
		}
		if cmd.Flags().Changed("hdg") {
			cfg.Heading.Target = hdgTarget
		}
		if cmd.Flags().Changed("spd") {
			cfg.Speed.Target = spdTarget
		}
	}
	if cfg.Seed == 0 || cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	return cfg, cfg.Validate()
}

func buildFlight(cfg *config.Config) (*loop.Loop, *plant.Aircraft) {
	ac := plant.NewAircraft(cfg.Seed)
	for _, d := range cfg.Dropouts {
		ax, _ := config.ParseAxis(d.Axis)
		src, _ := config.ParseSource(d.Source)
		ac.AddDropout(plant.Dropout{Axis: ax, Source: src, FromS: d.FromS, UntilS: d.UntilS})
	}

	var axes [axis.NumAxes]axis.State
	var pids [axis.NumAxes]control.PID
	for ax := axis.Name(0); ax < axis.NumAxes; ax++ {
		axCfg := cfg.AxisConfigFor(ax)
		axes[ax] = axis.State{
			Name:   ax,
			Target: axCfg.Target,
			Range:  axis.Range{Min: axCfg.MinOutput, Max: axCfg.MaxOutput},
		}
		pids[ax] = control.PID{
			Kp:      axCfg.Kp,
			Ki:      axCfg.Ki,
			Kd:      axCfg.Kd,
			Angular: ax == axis.Heading,
			Trim:    ax == axis.Speed,
		}
	}

	lp := loop.New(loop.Options{
		Axes:         axes,
		PIDs:         pids,
		Sensors:      ac,
		Actuators:    ac,
		SafeThrottle: cfg.SafeThrottle,
	})
	return lp, ac
}

func runFlight(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	lp, ac := buildFlight(cfg)
	period := time.Duration(cfg.PeriodMS) * time.Millisecond
	recorder := telemetry.NewRecorder(int(duration/period.Seconds()) + 1)
	lp.AddObserver(recorder)

	if realtime {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		lp.AddObserver(plantStepper{ac: ac, dt: period.Seconds()})
		fmt.Println("flying (ctrl-c to stop)")
		lp.Run(ctx, loop.NewScheduler(loop.SystemClock{}, period))
	} else {
		cycles := int(duration / period.Seconds())
		for i := 0; i < cycles; i++ {
			lp.Cycle()
			ac.Step(period.Seconds())
		}
	}

	st := telemetry.NewStore(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	targets := map[string]float64{
		"altitude": cfg.Altitude.Target,
		"heading":  cfg.Heading.Target,
		"speed":    cfg.Speed.Target,
	}
	runID, err := st.Save(cfg.PeriodMS, targets, lp.Counters(), recorder.Records())
	if err != nil {
		return err
	}

	printSummary(lp, ac, cfg)
	fmt.Printf("\nsaved run: %s\nplot with: flightloop plot %s --field alt_meas\n", runID, runID)
	return nil
}

// plantStepper advances the simulated plant after each realtime cycle.
type plantStepper struct {
	ac *plant.Aircraft
	dt float64
}

func (p plantStepper) OnCycle(telemetry.Record) { p.ac.Step(p.dt) }

func printSummary(lp *loop.Loop, ac *plant.Aircraft, cfg *config.Config) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "axis\ttarget\tfinal\toutput\thealth")
	fmt.Fprintf(w, "altitude\t%.0f\t%.0f\t%.3f\t%s\n",
		cfg.Altitude.Target, ac.AltitudeFt, lp.Axis(axis.Altitude).Output, lp.Health(axis.Altitude))
	fmt.Fprintf(w, "heading\t%.0f\t%.0f\t%.3f\t%s\n",
		cfg.Heading.Target, ac.HeadingDeg, lp.Axis(axis.Heading).Output, lp.Health(axis.Heading))
	fmt.Fprintf(w, "speed\t%.0f\t%.0f\t%.3f\t%s\n",
		cfg.Speed.Target, ac.SpeedKts, lp.Axis(axis.Speed).Output, lp.Health(axis.Speed))
	w.Flush()

	fmt.Printf("\ncycles: %d\n", lp.Cycles())
	for name, v := range lp.Counters().Snapshot() {
		fmt.Printf("%s: %d\n", name, v)
	}
	if tr := lp.Transitions(); len(tr) > 0 {
		fmt.Println("\nhealth transitions:")
		for _, t := range tr {
			fmt.Printf("  cycle %d  %s  %s -> %s\n", t.Cycle, t.Axis, t.From, t.To)
		}
	}
	for ax := axis.Name(0); ax < axis.NumAxes; ax++ {
		if err := lp.AxisErr(ax); err != nil {
			fmt.Printf("fault: %v\n", err)
		}
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	lp, ac := buildFlight(cfg)
	return tui.Run(lp, ac, time.Duration(cfg.PeriodMS)*time.Millisecond)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := telemetry.NewStore(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "id\ttimestamp\tcycles\tperiod\tfailovers")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%dms\t%d\n",
			r.ID, r.Timestamp.Format(time.RFC3339), r.Cycles, r.PeriodMS, r.Counters["sensor_failovers"])
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := telemetry.NewStore(dataDir)
	series, err := st.LoadSeries(args[0], field)
	if err != nil {
		return err
	}
	if len(series) < 2 {
		return fmt.Errorf("not enough data to plot")
	}
	fmt.Println(asciigraph.Plot(series, asciigraph.Height(15), asciigraph.Width(80), asciigraph.Caption(field)))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := telemetry.NewStore(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
