package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/missionlens/missionlens/internal/config"
	"github.com/missionlens/missionlens/internal/dataset"
	"github.com/missionlens/missionlens/internal/engine"
	mlerrors "github.com/missionlens/missionlens/internal/errors"
	"github.com/missionlens/missionlens/pkg/types"
)

const dateLayout = "2006-01-02"

type reportFlags struct {
	companies        []string
	statuses         []string
	locations        []string
	locationContains string
	rockets          []string
	rocketContains   string
	from             string
	to               string
	startYear        int
	endYear          int
	year             int
	top              int
	format           string
}

// Report is the summary printed by the report command.
type Report struct {
	Source         string             `json:"source"`
	Loaded         int                `json:"loaded"`
	Skipped        int                `json:"skipped"`
	Matched        int                `json:"matched"`
	SuccessRate    engine.Rate        `json:"success_rate"`
	Statuses       []engine.Count     `json:"statuses"`
	TopCompanies   []engine.Count     `json:"top_companies"`
	TopRockets     []engine.Count     `json:"top_rockets"`
	MostUsedRocket string             `json:"most_used_rocket,omitempty"`
	Years          *engine.YearRange  `json:"years,omitempty"`
	PerYear        []engine.YearCount `json:"per_year,omitempty"`
	AveragePerYear *float64           `json:"average_per_year,omitempty"`
	Missions       []string           `json:"missions,omitempty"`
	Company        *CompanySummary    `json:"company,omitempty"`
	Year           *YearTotal         `json:"year,omitempty"`
}

// CompanySummary describes one company's record over the report's dates,
// sites and rockets, ignoring the company and outcome filters.
type CompanySummary struct {
	Name        string      `json:"name"`
	Launches    int         `json:"launches"`
	SuccessRate engine.Rate `json:"success_rate"`
}

// YearTotal is the number of matched launches in one calendar year.
type YearTotal struct {
	Year     int `json:"year"`
	Launches int `json:"launches"`
}

func newReportCmd() *cobra.Command {
	var (
		common commonFlags
		flags  reportFlags
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a filtered summary of the dataset",
		Example: `  missionlens report --data missions.csv --company SpaceX --status Success
  missionlens report --data missions.csv.sz --from 1957-01-01 --to 1969-12-31 --top 3
  missionlens report --data missions.db --rocket-contains falcon --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.loadConfig(func(c *config.Config) {
				if !cmd.Flags().Changed("top") {
					flags.top = c.Explore.DefaultTopN
				}
			})
			if err != nil {
				return err
			}
			if flags.format != "text" && flags.format != "json" {
				return mlerrors.NewInvalidArgumentError(fmt.Sprintf("unknown format %q (text or json)", flags.format))
			}

			table, loadReport, err := dataset.Load(cmd.Context(), cfg.DataPath,
				dataset.WithMaxRowErrors(cfg.MaxRowErrors),
				dataset.WithSQLiteTable(cfg.SQLiteTable),
			)
			if err != nil {
				return err
			}

			report, err := buildReport(table, loadReport, flags)
			if err != nil {
				return err
			}

			if flags.format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return writeText(cmd.OutOrStdout(), report, loadReport)
		},
	}

	common.register(cmd)
	f := cmd.Flags()
	f.StringSliceVar(&flags.companies, "company", nil, "keep launches by these companies (repeatable)")
	f.StringSliceVar(&flags.statuses, "status", nil, "keep launches with these outcomes (repeatable)")
	f.StringSliceVar(&flags.locations, "location", nil, "keep launches from these exact sites (repeatable)")
	f.StringVar(&flags.locationContains, "location-contains", "", "keep launch sites containing this text")
	f.StringSliceVar(&flags.rockets, "rocket", nil, "keep launches of these rockets (repeatable)")
	f.StringVar(&flags.rocketContains, "rocket-contains", "", "keep rockets containing this text")
	f.StringVar(&flags.from, "from", "", "first launch date, YYYY-MM-DD")
	f.StringVar(&flags.to, "to", "", "last launch date, YYYY-MM-DD")
	f.IntVar(&flags.startYear, "start-year", 0, "first year of the per-year breakdown (default: first year in dataset)")
	f.IntVar(&flags.endYear, "end-year", 0, "last year of the per-year breakdown (default: last year in dataset)")
	f.IntVar(&flags.year, "year", 0, "also report the matched launches in this year")
	f.IntVar(&flags.top, "top", 10, "number of companies and rockets to rank")
	f.StringVar(&flags.format, "format", "text", "output format: text or json")
	return cmd
}

func (f reportFlags) criteria() (engine.Criteria, error) {
	c := engine.Criteria{
		Companies:        f.companies,
		Locations:        f.locations,
		LocationContains: f.locationContains,
		Rockets:          f.rockets,
		RocketContains:   f.rocketContains,
	}

	var err error
	if c.Dates.From, err = parseFlagDate("from", f.from); err != nil {
		return c, err
	}
	if c.Dates.To, err = parseFlagDate("to", f.to); err != nil {
		return c, err
	}

	for _, s := range f.statuses {
		st, err := types.ParseStatus(s)
		if err != nil {
			return c, mlerrors.NewInvalidArgumentError(err.Error())
		}
		c.Statuses = append(c.Statuses, st)
	}
	return c, nil
}

func parseFlagDate(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, mlerrors.NewInvalidArgumentError(fmt.Sprintf("--%s: %q is not a YYYY-MM-DD date", name, s))
	}
	return t, nil
}

// buildReport filters table by the flags and computes every section.
func buildReport(table *dataset.Table, lr *dataset.LoadReport, f reportFlags) (*Report, error) {
	c, err := f.criteria()
	if err != nil {
		return nil, err
	}

	subset := engine.ApplyFilters(table, c)

	r := &Report{
		Source:      lr.Source,
		Loaded:      lr.Rows,
		Skipped:     lr.Skipped,
		Matched:     len(subset),
		SuccessRate: engine.SuccessRate(subset),
		Statuses:    outcomeCounts(subset),
	}

	if r.TopCompanies, err = engine.CountsByCompany(subset, f.top); err != nil {
		return nil, err
	}
	if r.TopRockets, err = engine.CountsByRocket(subset, f.top); err != nil {
		return nil, err
	}
	if rocket, ok := engine.MostUsedRocket(subset); ok {
		r.MostUsedRocket = rocket
	}

	start, end, ok := table.YearSpan()
	if f.startYear != 0 {
		start = f.startYear
	}
	if f.endYear != 0 {
		end = f.endYear
	}
	if ok || (f.startYear != 0 && f.endYear != 0) {
		years := engine.YearRange{Start: start, End: end}
		if r.PerYear, err = engine.CountsByYear(subset, years); err != nil {
			return nil, err
		}
		avg, err := engine.AveragePerYear(subset, years)
		if err != nil {
			return nil, err
		}
		avg = engine.Round2(avg)
		r.Years = &years
		r.AveragePerYear = &avg
	}

	if !c.Dates.From.IsZero() && !c.Dates.To.IsZero() {
		r.Missions = engine.MissionNamesBetween(subset, c.Dates.From, c.Dates.To)
	}

	if len(c.Companies) == 1 {
		base := c
		base.Companies = nil
		base.Statuses = nil
		others := engine.ApplyFilters(table, base)
		name := c.Companies[0]
		r.Company = &CompanySummary{
			Name:        name,
			Launches:    engine.MissionCount(others, name),
			SuccessRate: engine.CompanySuccessRate(others, name),
		}
	}

	if f.year != 0 {
		r.Year = &YearTotal{Year: f.year, Launches: engine.MissionsInYear(subset, f.year)}
	}

	return r, nil
}

// outcomeCounts lists every outcome in display order, including those with
// no launches.
func outcomeCounts(s engine.Subset) []engine.Count {
	counts := engine.StatusCounts(s)
	out := make([]engine.Count, 0, len(types.AllStatuses))
	for _, st := range types.AllStatuses {
		out = append(out, engine.Count{Label: string(st), Value: counts[st]})
	}
	return out
}

// writeText prints r as aligned plain-text sections.
func writeText(out io.Writer, r *Report, lr *dataset.LoadReport) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "Source:\t%s\n", r.Source)
	fmt.Fprintf(w, "Loaded:\t%d missions (%d rows skipped)\n", r.Loaded, r.Skipped)
	fmt.Fprintf(w, "Matched:\t%d\n", r.Matched)
	fmt.Fprintf(w, "Success rate:\t%s\n", r.SuccessRate)
	if r.MostUsedRocket != "" {
		fmt.Fprintf(w, "Most used rocket:\t%s\n", r.MostUsedRocket)
	}
	if r.Company != nil {
		fmt.Fprintf(w, "%s:\t%d launches, %s success\n",
			r.Company.Name, r.Company.Launches, r.Company.SuccessRate)
	}
	if r.Year != nil {
		fmt.Fprintf(w, "Launches in %d:\t%d\n", r.Year.Year, r.Year.Launches)
	}
	if r.AveragePerYear != nil {
		fmt.Fprintf(w, "Average per year:\t%s (%d-%d)\n",
			strconv.FormatFloat(*r.AveragePerYear, 'f', 2, 64), r.Years.Start, r.Years.End)
	}

	writeCounts(w, "Outcome", r.Statuses)
	writeCounts(w, "Company", r.TopCompanies)
	writeCounts(w, "Rocket", r.TopRockets)

	if len(r.PerYear) > 0 {
		fmt.Fprintf(w, "\nYear\tLaunches\n")
		for _, y := range r.PerYear {
			fmt.Fprintf(w, "%d\t%d\n", y.Year, y.Count)
		}
	}

	if len(r.Missions) > 0 {
		fmt.Fprintf(w, "\nMissions\n")
		for _, m := range r.Missions {
			fmt.Fprintf(w, "%s\n", m)
		}
	}

	if len(lr.RowErrors) > 0 {
		fmt.Fprintf(w, "\nSkipped rows\n")
		for _, e := range lr.RowErrors {
			fmt.Fprintf(w, "%s\n", e)
		}
	}

	return w.Flush()
}

func writeCounts(w io.Writer, heading string, counts []engine.Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\tLaunches\n", heading)
	for _, c := range counts {
		fmt.Fprintf(w, "%s\t%d\n", c.Label, c.Value)
	}
}
