// bnocal brings the IMU up on its own: it restores the saved calibration, or
// walks through calibrating it and saves the result, then prints the heading
// for a few seconds so the zero can be checked.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/bno055"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/config"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/cotask"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/share"
)

func main() {
	app := cli.NewApp()
	app.Name = "bnocal"
	app.Usage = "calibrate the BNO055 and save its coefficients"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Value: "/cfg/romi.yaml",
			Usage: "YAML file overlaid on the built-in defaults; skipped if missing",
		},
		cli.BoolFlag{
			Name:  "fresh",
			Usage: "ignore any saved calibration and calibrate from scratch",
		},
		cli.DurationFlag{
			Name:  "watch",
			Value: 5 * time.Second,
			Usage: "how long to print the heading for once calibrated",
		},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		fmt.Println("bnocal failed:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		if _, err := os.Stat(path); err == nil {
			if cfg, err = config.Load(path); err != nil {
				return err
			}
		}
	}
	hwc := cfg.Hardware
	mode, err := bno055.ParseMode(hwc.IMUMode)
	if err != nil {
		return err
	}

	if c.Bool("fresh") {
		if err := os.Remove(hwc.CalibrationFile); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	var dev *bno055.Device
	if hwc.IMUSerial != "" {
		dev, err = bno055.OpenSerial(hwc.IMUSerial)
	} else {
		dev, err = bno055.OpenI2C(hwc.I2CBus, hwc.IMUAddress)
	}
	if err != nil {
		return err
	}

	f := share.New[float64]
	shares := bno055.Shares{
		Heading:         f("phi"),
		CalibrationDone: share.NewFlag("BNO cal done"),
		ZeroHeading:     share.NewFlag("BNO zero"),
		EulerX:          f("eul x"),
		EulerY:          f("eul y"),
		EulerZ:          f("eul z"),
		RateX:           f("av x"),
		RateY:           f("av y"),
		RateZ:           f("av z"),
	}
	task := bno055.NewTask(dev, bno055.FileStore{Path: hwc.CalibrationFile}, mode, shares)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	period := cfg.Scheduler.Period()
	var calibratedAt time.Time
	watch := func() {
		if shares.CalibrationDone.IsClear() {
			return
		}
		if calibratedAt.IsZero() {
			calibratedAt = time.Now()
			fmt.Println("Calibrated; coefficients are in", hwc.CalibrationFile)
			shares.ZeroHeading.Put()
			return
		}
		fmt.Printf("heading %.3f rad  rate %.3f rad/s\n", shares.Heading.Get(), shares.RateZ.Get())
		if time.Since(calibratedAt) > c.Duration("watch") {
			cancel()
		}
	}

	sched := cotask.New(cotask.SystemClock{})
	for _, t := range []*cotask.Task{
		{Name: "BNO", Period: period, Priority: 1, Body: task.Step},
		{Name: "Watch", Period: 20 * period, Priority: 2, Body: watch},
	} {
		if err := sched.Add(t); err != nil {
			return err
		}
	}
	if err := sched.Run(ctx); err != context.Canceled {
		return err
	}
	return nil
}
