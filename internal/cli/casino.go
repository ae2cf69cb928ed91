package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/codequest-app/codequest/internal/app/casino"
	"github.com/codequest-app/codequest/internal/domain"
)

func init() {
	casinoAwardCmd.Flags().BoolVar(&drawWon, "won", false, "Coin flip: the call was right")
	casinoAwardCmd.Flags().Float64Var(&drawAngle, "angle", 0, "Wheel: stop angle in degrees")
	casinoAwardCmd.Flags().BoolVar(&drawCorrect, "correct", false, "Horse race: the picked horse won")
	casinoCmd.AddCommand(casinoOddsCmd, casinoAwardCmd)
	rootCmd.AddCommand(casinoCmd)
}

var (
	drawWon     bool
	drawAngle   float64
	drawCorrect bool
)

var casinoCmd = &cobra.Command{
	Use:   "casino",
	Short: "Casino payout rules",
}

var casinoOddsCmd = &cobra.Command{
	Use:   "odds",
	Short: "Print the wheel sectors and game payouts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SECTOR\tFROM\tTO\tMULTIPLIER")
		const sectors, width = 8, 45.0
		for i := 0; i < sectors; i++ {
			from := float64(i) * width
			fmt.Fprintf(w, "%d\t%.0f°\t%.0f°\tx%g\n", i, from, from+width, casino.WheelMultiplier(from))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out)
		fmt.Fprintln(out, "coin_flip:  win pays x2, loss refunds half the stake")
		fmt.Fprintln(out, "horse_race: win pays x3, loss refunds a third of the stake")
		return nil
	},
}

var casinoAwardCmd = &cobra.Command{
	Use:   "award GAME STAKE",
	Short: "Compute the points awarded for one round",
	Args:  cobra.ExactArgs(2),
	RunE:  runCasinoAward,
}

func runCasinoAward(cmd *cobra.Command, args []string) error {
	game := domain.Game(args[0])
	stake, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || stake <= 0 {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStake, args[1])
	}

	awarded, err := casino.Award(game, stake, casino.Draw{Won: drawWon, Angle: drawAngle, Correct: drawCorrect})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Game:    %s\n", game)
	fmt.Fprintf(out, "Stake:   %d\n", stake)
	fmt.Fprintf(out, "Awarded: %d\n", awarded)
	fmt.Fprintf(out, "Net:     %+d\n", awarded-stake)
	return nil
}
