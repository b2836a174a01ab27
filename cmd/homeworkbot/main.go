package main

import (
	"log"

	corecmd "github.com/m3rciful/homeworkbot/core/cmd"
	"github.com/m3rciful/homeworkbot/internal/app"
)

func main() {
	if err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	}); err != nil {
		log.Fatalf("homeworkbot: %v", err)
	}
}
