package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/codequest-app/codequest/internal/app/engagement"
)

func init() {
	rootCmd.AddCommand(levelCmd)
}

var levelCmd = &cobra.Command{
	Use:   "level XP",
	Short: "Show the level reached with a total amount of XP",
	Args:  cobra.ExactArgs(1),
	RunE:  runLevel,
}

func runLevel(cmd *cobra.Command, args []string) error {
	xp, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid XP %q: %w", args[0], err)
	}

	st := engagement.StateForXP(xp)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Level:    %d\n", st.Level)
	fmt.Fprintf(out, "Total XP: %d\n", st.TotalXP)
	fmt.Fprintf(out, "Next:     %d XP to level %d\n", st.XPToNextLevel-st.XPIntoLevel, st.Level+1)
	fmt.Fprintf(out, "  %s\n", levelBar(st.XPIntoLevel, st.XPToNextLevel))
	return nil
}
