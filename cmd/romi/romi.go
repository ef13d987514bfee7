package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/config"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/hardware"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/robot"
)

func main() {
	app := cli.NewApp()
	app.Name = "romi"
	app.Usage = "run the line following robot"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Value: "/cfg/romi.yaml",
			Usage: "YAML file overlaid on the built-in defaults; skipped if missing",
		},
		cli.BoolFlag{
			Name:  "dummy",
			Usage: "drive the simulator instead of the real hardware",
		},
		cli.StringFlag{
			Name:  "mission",
			Usage: "circle, course or idle; overrides the config file",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "print the task profile on shut down",
		},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		fmt.Println("Romi failed:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	fmt.Println("---- Romi ----")

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	fmt.Print(cfg.Dump())

	ctx, cancel := context.WithCancel(context.Background())
	registerSignalHandlers(cancel)

	var hw hardware.Interface
	if cfg.Hardware.Dummy {
		hw = hardware.NewDummy(cfg.Robot, cfg.Scheduler.Period(), hardware.WorldFor(cfg.Mission))
	} else {
		hw, err = hardware.New(cfg.Hardware)
		if err != nil {
			return err
		}
	}
	defer func() {
		// The device loops only exit once the context is done.
		cancel()
		hw.Shutdown()
	}()

	r, err := robot.Build(cfg, hw, nil)
	if err != nil {
		return err
	}
	defer r.Stop()

	hw.Start(ctx)
	err = r.Scheduler.Run(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	path := c.String("config")
	if _, err := os.Stat(path); err == nil {
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	} else {
		fmt.Println("No config file at", path, "using defaults")
	}
	if c.Bool("dummy") {
		cfg.Hardware.Dummy = true
	}
	if m := c.String("mission"); m != "" {
		cfg.Mission = m
	}
	if c.Bool("verbose") {
		cfg.Verbose = true
	}
	return cfg, cfg.Validate()
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
