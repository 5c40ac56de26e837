package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	auth "github.com/mind-engage/courseratings/internal/auth/middleware"
	"github.com/mind-engage/courseratings/internal/eventlog"
	"github.com/mind-engage/courseratings/internal/ingest"
	"github.com/mind-engage/courseratings/internal/locale"
	"github.com/mind-engage/courseratings/internal/rbac"
	"github.com/mind-engage/courseratings/internal/ratings"
	"github.com/mind-engage/courseratings/internal/reference"
	"github.com/mind-engage/courseratings/internal/render"
	"github.com/mind-engage/courseratings/internal/series"
	"github.com/mind-engage/courseratings/internal/term"
	"github.com/mind-engage/courseratings/internal/widget"
)

func importCmd(a *app) *cobra.Command {
	var course, sheet string
	cmd := &cobra.Command{
		Use:   "import <file.json|file.xlsx>",
		Short: "Import rating tuples for one course page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			var (
				points []series.DataPoint
				source string
				err    error
			)
			switch strings.ToLower(filepath.Ext(path)) {
			case ".xlsx":
				source = "xlsx"
				points, err = ingest.ReadXLSX(path, sheet)
			default:
				source = "json"
				var f *os.File
				if f, err = os.Open(path); err == nil {
					points, err = ingest.ReadJSON(f)
					f.Close()
				}
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			dbh, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer dbh.Close()
			im := &ratings.Importer{
				Store:  ratings.NewSQLStore(dbh),
				Events: eventlog.NewRepo(dbh, a.cfg.SiteID),
				Logger: a.logger,
			}
			n, err := im.Import(cmd.Context(), course, source, os.Getenv("USER"), points)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "imported %d ratings for %s\n", n, course)
			return nil
		},
	}
	cmd.Flags().StringVar(&course, "course", "", "Course page the ratings belong to (required)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet to read (default: first)")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

func averagesCmd(a *app) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "averages",
		Short: "Recompute the reference table from every stored course",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbh, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer dbh.Close()
			scores, err := ratings.NewSQLStore(dbh).TermScores(cmd.Context())
			if err != nil {
				return err
			}
			table := reference.Averages(scores)
			if table.Len() == 0 {
				return series.ErrNoData
			}
			if outPath == "" {
				return reference.Encode(a.out, table)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := reference.Encode(f, table); err != nil {
				f.Close()
				return err
			}
			a.logger.Info("Reference table written", "path", outPath, "terms", table.Len())
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file path (default: stdout)")
	return cmd
}

func renderCmd(a *app) *cobra.Command {
	var (
		outPath, format, lang, refPath string
		hide                           []string
	)
	cmd := &cobra.Command{
		Use:   "render <course>",
		Short: "Render the widget chart of a course page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			course := args[0]
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			table := reference.Default()
			if refPath != "" {
				if table, err = reference.Load(refPath); err != nil {
					return err
				}
			}
			if lang == "" {
				lang = a.cfg.Locale
			}

			opts := widget.Options{Course: course, Locale: locale.FromFlag(lang), Table: table, Logger: a.logger}
			if course != series.AverageCourse {
				dbh, err := a.openDB(cmd.Context())
				if err != nil {
					return err
				}
				defer dbh.Close()
				points, err := ratings.NewSQLStore(dbh).ListRatings(cmd.Context(), course)
				if err != nil {
					return err
				}
				opts.Points = append([]series.DataPoint{}, points...)
			}
			w, err := widget.New(opts)
			if err != nil {
				return err
			}
			for _, name := range hide {
				if _, err := w.SetVisible(name, false); err != nil {
					return err
				}
			}

			if outPath == "" {
				outPath = course + "." + string(f)
			}
			file, err := os.Create(outPath)
			if err != nil {
				return err
			}
			ropts := render.Options{Width: a.cfg.RenderWidth, Height: a.cfg.RenderHeight}
			if err := render.Render(file, w.Config(), f, ropts); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (default: <course>.<format>)")
	cmd.Flags().StringVar(&format, "format", "png", "Image format: png or svg")
	cmd.Flags().StringVar(&lang, "lang", "", "Page language flag (en for English)")
	cmd.Flags().StringVar(&refPath, "reference", "", "Reference table YAML (default: built-in)")
	cmd.Flags().StringSliceVar(&hide, "hide", nil, "Series to hide before rendering")
	return cmd
}

func termsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "terms <from> <to>",
		Short: "List the terms between two terms, inclusive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := term.Parse(args[0])
			if err != nil {
				return err
			}
			to, err := term.Parse(args[1])
			if err != nil {
				return err
			}
			for _, t := range term.Range(from, to) {
				fmt.Fprintln(a.out, t)
			}
			return nil
		},
	}
}

func tokenCmd(a *app) *cobra.Command {
	var sub, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token signed with AUTH_HMAC_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rbac.KnownRole(role) {
				return fmt.Errorf("unknown role %q", role)
			}
			tok, err := auth.NewAuthService(a.cfg.AuthHMACSecret).IssueJWT(sub, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "ratingctl", "Token subject")
	cmd.Flags().StringVar(&role, "role", rbac.RoleEditor, "Role: admin, editor or viewer")
	return cmd
}

func eventsCmd(a *app) *cobra.Command {
	var (
		after int64
		limit int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the import event log as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbh, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer dbh.Close()
			events, err := eventlog.NewRepo(dbh, a.cfg.SiteID).List(cmd.Context(), after, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.out)
			for _, e := range events {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&after, "after", 0, "Only events after this sequence number")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of events")
	return cmd
}
