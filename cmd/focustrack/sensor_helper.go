package main

import (
	"fmt"
	"log/slog"

	"focustrack/pkg/config"
	"focustrack/pkg/sensor/mocksensor"
)

func initializeSensor(cfg *config.Config) (*mocksensor.Source, error) {
	if cfg.Sensor.Provider == config.SensorScenario {
		slog.Info("Sensor Source: Scenario", "path", cfg.Sensor.Scenario)
		sc, err := mocksensor.Load(cfg.Sensor.Scenario)
		if err != nil {
			return nil, err
		}
		sc.Loop = sc.Loop || cfg.Sensor.Loop
		return mocksensor.FromScenario(sc, nil)
	}

	slog.Info("Sensor Source: Generated", "seed", cfg.Sensor.Seed)
	return mocksensor.NewSource(mocksensor.DefaultScenario(cfg.Sensor.Seed), mocksensor.Config{
		Loop: cfg.Sensor.Loop,
	}), nil
}

func sensorLabel(cfg *config.Config) string {
	if cfg.Sensor.Provider == config.SensorScenario {
		return fmt.Sprintf("%s:%s", config.SensorScenario, cfg.Sensor.Scenario)
	}
	return fmt.Sprintf("%s:%d", config.SensorGenerated, cfg.Sensor.Seed)
}
