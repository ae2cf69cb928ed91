package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/codequest-app/codequest/internal/app/content"
)

func init() {
	contentCmd.PersistentFlags().StringVar(&contentDir, "dir", "", "Content directory (overrides config)")
	contentExportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format: json or xml")
	contentCmd.AddCommand(contentCheckCmd, contentCoursesCmd, contentShowCmd, contentExportCmd)
	rootCmd.AddCommand(contentCmd)
}

var (
	contentDir   string
	exportFormat string
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Inspect course content bundles",
}

var contentCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load every content unit and report problems",
	Args:  cobra.NoArgs,
	RunE:  runContentCheck,
}

var contentCoursesCmd = &cobra.Command{
	Use:     "courses",
	Aliases: []string{"ls"},
	Short:   "List courses",
	Args:    cobra.NoArgs,
	RunE:    runContentCourses,
}

var contentShowCmd = &cobra.Command{
	Use:   "show COURSE",
	Short: "Show a course and its tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runContentShow,
}

var contentExportCmd = &cobra.Command{
	Use:   "export courses|rewards|tasks COURSE|questions TASK",
	Short: "Print a content unit re-encoded as JSON or XML",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runContentExport,
}

func contentCatalog() (*content.Catalog, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if contentDir != "" {
		cfg.Content.Dir = contentDir
	}
	return openCatalog(cfg)
}

func runContentCheck(cmd *cobra.Command, args []string) error {
	catalog, err := contentCatalog()
	if err != nil {
		return err
	}

	problems := catalog.Check()
	out := cmd.OutOrStdout()
	if len(problems) == 0 {
		fmt.Fprintln(out, "Content OK.")
		return nil
	}
	for _, p := range problems {
		fmt.Fprintf(out, "  %s\n", p)
	}
	return fmt.Errorf("%d content problem(s)", len(problems))
}

func runContentCourses(cmd *cobra.Command, args []string) error {
	catalog, err := contentCatalog()
	if err != nil {
		return err
	}
	courses, err := catalog.LoadCourses()
	if err != nil {
		return err
	}

	if len(courses) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No courses found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tDIFFICULTY")
	for _, c := range courses {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Title, content.DifficultyName(c.Difficulty))
	}
	return w.Flush()
}

func runContentShow(cmd *cobra.Command, args []string) error {
	catalog, err := contentCatalog()
	if err != nil {
		return err
	}
	course, err := catalog.Course(args[0])
	if err != nil {
		return err
	}
	tasks, err := catalog.LoadTasks(course.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %s\n", course.ID)
	fmt.Fprintf(out, "Title:       %s\n", course.Title)
	fmt.Fprintf(out, "Difficulty:  %s\n", content.DifficultyName(course.Difficulty))
	if course.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", course.Description)
	}
	fmt.Fprintf(out, "Tasks:       %d\n\n", len(tasks))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tTITLE\tDIFFICULTY\tQUESTIONS")
	for _, t := range tasks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", t.Order, t.ID, t.Title, content.DifficultyName(t.Difficulty), t.QuestionCount)
	}
	return w.Flush()
}

func runContentExport(cmd *cobra.Command, args []string) error {
	format := content.Format(strings.ToLower(exportFormat))
	if format != content.FormatJSON && format != content.FormatXML {
		return fmt.Errorf("unknown format %q: want json or xml", exportFormat)
	}
	unit := args[0]
	needsID := unit == "tasks" || unit == "questions"
	if needsID != (len(args) == 2) {
		return fmt.Errorf("usage: %s", cmd.Use)
	}

	catalog, err := contentCatalog()
	if err != nil {
		return err
	}

	var data []byte
	switch unit {
	case "courses":
		courses, err := catalog.LoadCourses()
		if err != nil {
			return err
		}
		data, err = content.EncodeCourses(format, courses)
		if err != nil {
			return err
		}
	case "rewards":
		rewards, err := catalog.LoadRewards()
		if err != nil {
			return err
		}
		data, err = content.EncodeRewards(format, rewards)
		if err != nil {
			return err
		}
	case "tasks":
		tasks, err := catalog.LoadTasks(args[1])
		if err != nil {
			return err
		}
		data, err = content.EncodeTasks(format, tasks)
		if err != nil {
			return err
		}
	case "questions":
		questions, err := catalog.LoadQuestions(args[1])
		if err != nil {
			return err
		}
		data, err = content.EncodeQuestions(format, questions)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown content unit %q", unit)
	}

	_, err = cmd.OutOrStdout().Write(append(data, '\n'))
	return err
}
