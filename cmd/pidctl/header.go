package main

import (
	"strconv"

	"codeberg.org/mutker/pidctl/internal/channel"
	"codeberg.org/mutker/pidctl/internal/config"
	"codeberg.org/mutker/pidctl/internal/record"
)

const (
	controlLogTitle = "PID-Controller Log File"
	noiseLogTitle   = "Noise Log File"
)

func logHeader(cfg *config.Config) record.Header {
	target := record.Field{Name: "File", Value: cfg.File}
	if cfg.Mode == config.ModeNormal {
		target = record.Field{Name: "PV", Value: cfg.PV}
	}

	num := channel.FormatValue
	delay := record.Field{Name: "Delay", Value: num(cfg.Delay.Seconds())}

	if cfg.Role == config.RoleNoise {
		n := cfg.Noise
		return record.Header{
			Title: noiseLogTitle,
			Fields: []record.Field{
				target,
				{Name: "Type", Value: n.Variant.String()},
				{Name: "Strength", Value: num(n.Strength)},
				{Name: "Drift", Value: num(n.Drift)},
				{Name: "Period", Value: num(n.Period.Seconds())},
				{Name: "Amplitude", Value: num(n.Amplitude)},
				{Name: "Shift", Value: num(n.Shift)},
				{Name: "Seed", Value: strconv.FormatUint(n.Seed, 10)},
				delay,
			},
		}
	}

	p := cfg.PID
	return record.Header{
		Title: controlLogTitle,
		Fields: []record.Field{
			target,
			{Name: "Kp", Value: num(p.Kp)},
			{Name: "Ki", Value: num(p.Ki)},
			{Name: "Kd", Value: num(p.Kd)},
			{Name: "Setpoint", Value: num(p.Setpoint)},
			{Name: "Min", Value: num(p.OutputMin)},
			{Name: "Max", Value: num(p.OutputMax)},
			delay,
		},
	}
}
