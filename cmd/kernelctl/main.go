package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/valence-kernel/valence/pkg/config"
	"github.com/valence-kernel/valence/pkg/utils"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kernelctl",
		Short: "Operator tooling for the Valence execution kernel",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env, _ := cmd.Flags().GetString("env")
			config.Load(env)
			return nil
		},
	}
	// Falls back to VALENCE_KERNELCTL_ENV so operators can pin an environment
	// for a shell session without passing --env on every invocation.
	defaultEnv := utils.EnvOrDefault("VALENCE_KERNELCTL_ENV", "")
	rootCmd.PersistentFlags().String("env", defaultEnv, "configuration environment name (matches config/<env>.yaml)")

	rootCmd.AddCommand(opcodesCmd())
	rootCmd.AddCommand(guardCmd())
	rootCmd.AddCommand(programCmd())
	rootCmd.AddCommand(simulateCmd())

	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("kernelctl failed")
		os.Exit(1)
	}
}
