package main

import (
	"fmt"
	"os"

	"blazedb-go/config"
	"blazedb-go/interpreter"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "blazedb database_dir input_file output_file",
	Short: "Run the SELECT query in input_file against database_dir",
	Long: `blazedb reads the catalog from database_dir/schema.txt, runs the single
query found in input_file and writes one line per result row to output_file.

Configuration is read from the yaml file named by $BLAZEDB_CONFIG, object
storage credentials from the environment or a .env file.`,
	Args:          cobra.ExactArgs(3),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := setupLogging(cfg); err != nil {
			return err
		}
		return interpreter.Execute(cfg, args[0], args[1], args[2])
	},
}

// results go to the output file, logs to stderr
func setupLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return errors.Wrap(err, "bad logging level")
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	if cfg.Logging.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "blazedb: %v\n", err)
		os.Exit(1)
	}
}
