package main

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/valence-kernel/valence/core"
	"github.com/valence-kernel/valence/pkg/config"
	"github.com/valence-kernel/valence/pkg/utils"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	config.Load("")

	if utils.EnvOrDefaultBool("VALENCE_EXPLORER_DEBUG_LOG", false) {
		logrus.SetLevel(logrus.DebugLevel)
	}

	svc := NewKernelService(core.NewSessionService(), core.NewStore(), core.NewCPIAllowlist())
	srv := NewServer(config.AppConfig.Explorer.BindAddr, svc)

	logrus.WithField("addr", config.AppConfig.Explorer.BindAddr).Info("kernelexplorer listening")
	if err := srv.Start(); err != nil {
		logrus.WithError(err).Fatal("kernelexplorer server")
	}
}
