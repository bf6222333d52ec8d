package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zulandar/fatebot/internal/dice"
)

// rollerForCLI returns the dice source. Allows test override.
var rollerForCLI = func() dice.Roller { return dice.DefaultRoller }

func newRollCmd() *cobra.Command {
	var (
		configPath string
		count      int
	)

	cmd := &cobra.Command{
		Use:   "roll <stat>",
		Short: "Roll Fudge dice against a stat",
		Long:  "Rolls Fudge dice (four by default) and adds the stat, printing the result on the ladder.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoll(cmd, configPath, count, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&count, "dice", "d", dice.DefaultDice, "number of dice to roll")
	return cmd
}

func runRoll(cmd *cobra.Command, configPath string, count int, statArg string) error {
	stat, err := strconv.Atoi(statArg)
	if err != nil {
		return fmt.Errorf("roll: stat %q is not a number", statArg)
	}
	if count < 1 {
		return fmt.Errorf("roll: --dice must be at least 1")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), dice.RollStat(rollerForCLI(), count, cfg.Dice.MaxDice, stat))
	return nil
}
