package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgPath string
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:           "sgf_review",
	Short:         "Review go game records with a GTP engine",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "sgf_review", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".env", "config file (env, yaml, json or toml)")
	rootCmd.PersistentFlags().IntP("verbosity", "v", 0, "log verbosity: 0 warnings, 1 info, 2 debug")
	mustBind("VERBOSITY", rootCmd.PersistentFlags().Lookup("verbosity"))

	rootCmd.AddCommand(versionCmd)
}

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}
