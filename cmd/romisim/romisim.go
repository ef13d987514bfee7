// romisim runs a mission against the simulator as fast as the scheduler can
// go, on a simulated clock, and reports where the robot ended up.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/config"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/cotask"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/hardware"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/mastermind"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/robot"
)

func main() {
	app := cli.NewApp()
	app.Name = "romisim"
	app.Usage = "run a mission in the simulator"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "YAML file overlaid on the built-in defaults",
		},
		cli.StringFlag{
			Name:  "mission",
			Value: config.MissionCircle,
			Usage: "circle or course",
		},
		cli.IntFlag{
			Name:  "passes",
			Value: 20000,
			Usage: "give up after this many scheduler passes",
		},
		cli.IntFlag{
			Name:  "trace",
			Usage: "print the pose every this many passes; 0 for never",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "print the task profile at the end",
		},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		fmt.Println("romisim failed:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	cfg.Mission = c.String("mission")
	cfg.Verbose = c.Bool("verbose")
	cfg.Hardware.Dummy = true
	if err := cfg.Validate(); err != nil {
		return err
	}

	period := cfg.Scheduler.Period()
	hw := hardware.NewDummy(cfg.Robot, period, hardware.WorldFor(cfg.Mission))
	clock := cotask.NewManualClock(time.Now())
	r, err := robot.Build(cfg, hw, clock)
	if err != nil {
		return err
	}
	defer hw.Shutdown()
	defer r.Stop()

	trace := c.Int("trace")
	started := false
	for pass := 0; pass < c.Int("passes"); pass++ {
		r.Scheduler.RunPass()
		clock.Advance(period)

		state := r.MasterMind.State()
		if trace > 0 && pass%trace == 0 {
			report(fmt.Sprintf("%6d", pass), hw, r)
		}
		if state != mastermind.StateInit && state != mastermind.StateIdle {
			started = true
		}
		if started && state == mastermind.StateIdle {
			fmt.Printf("Finished after %d passes (%v simulated)\n", pass+1, time.Duration(pass+1)*period)
			report("final", hw, r)
			return nil
		}
	}
	report("gave up", hw, r)
	return fmt.Errorf("still %v after %d passes", r.MasterMind.State(), c.Int("passes"))
}

func report(label string, hw *hardware.Dummy, r *robot.Robot) {
	truth, heading := hw.Pose()
	est := r.MasterMind.Pose()
	fmt.Printf("%s: %-10v true (%.3f, %.3f) %.2frad  estimate (%.3f, %.3f) %.2frad  error %.3fm  from start %.3fm\n",
		label, r.MasterMind.State(),
		truth.X, truth.Y, heading,
		est.Position.X, est.Position.Y, est.Heading,
		r2.Norm(r2.Sub(est.Position, truth)), r2.Norm(truth))
}
