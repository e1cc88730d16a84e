package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/cheggaaa/pb/v3"

	"github.com/mmynk/officevote/internal/admin"
	"github.com/mmynk/officevote/internal/auth"
	"github.com/mmynk/officevote/internal/election"
	"github.com/mmynk/officevote/internal/models"
	"github.com/mmynk/officevote/internal/roster"
	"github.com/mmynk/officevote/internal/tally"
)

var errUsage = errors.New("invalid arguments")

type sheetReader interface {
	Rows(ctx context.Context, spreadsheetID, readRange string) ([][]string, error)
}

type cli struct {
	dir     *election.Directory
	console *admin.Console
	reader  *tally.Reader
	sheets  sheetReader
	out     io.Writer
	in      io.Reader

	// progress shows pb bars for batch writes.
	progress bool
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "init":
		return c.initElection(ctx, args)
	case "create":
		return c.createElection(ctx, args)
	case "switch":
		return c.switchElection(ctx, args)
	case "list":
		return c.listElections(ctx)
	case "import-candidates":
		return c.importRoster(ctx, "import-candidates", args)
	case "import-voters":
		return c.importRoster(ctx, "import-voters", args)
	case "results":
		return c.results(ctx, args)
	case "reset":
		return c.reset(ctx, args)
	case "hash-password":
		return hashPassword(args, c.in, c.out)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseID(name string, args []string) (string, error) {
	fs := newFlagSet(name)
	id := fs.String("id", "", "election ID")
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("%w: %v", errUsage, err)
	}
	if *id == "" {
		return "", fmt.Errorf("%w: -id is required", errUsage)
	}
	return *id, nil
}

// initElection creates the election unless it exists and makes it active.
func (c *cli) initElection(ctx context.Context, args []string) error {
	id, err := parseID("init", args)
	if err != nil {
		return err
	}
	if err := c.console.CreateElection(ctx, id); err != nil && !errors.Is(err, election.ErrElectionExists) {
		return err
	}
	if err := c.console.SwitchElection(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "active election: %s\n", id)
	return nil
}

func (c *cli) createElection(ctx context.Context, args []string) error {
	id, err := parseID("create", args)
	if err != nil {
		return err
	}
	if err := c.console.CreateElection(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "created election: %s\n", id)
	return nil
}

func (c *cli) switchElection(ctx context.Context, args []string) error {
	id, err := parseID("switch", args)
	if err != nil {
		return err
	}
	if err := c.console.SwitchElection(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "active election: %s\n", id)
	return nil
}

func (c *cli) listElections(ctx context.Context) error {
	p, err := c.console.ListElections(ctx)
	if err != nil {
		return err
	}
	for _, id := range p.ElectionList {
		mark := " "
		if id == p.ActiveElectionID {
			mark = "*"
		}
		fmt.Fprintf(c.out, "%s %s\n", mark, id)
	}
	return nil
}

// progressBar returns a Progress that drives a pb bar, and a function that
// finishes it.
func (c *cli) progressBar() (admin.Progress, func()) {
	if !c.progress {
		return nil, func() {}
	}
	var bar *pb.ProgressBar
	update := func(done, total int) {
		if bar == nil {
			bar = pb.Full.Start(total)
		}
		bar.SetCurrent(int64(done))
	}
	return update, func() {
		if bar != nil {
			bar.Finish()
		}
	}
}

func (c *cli) importRoster(ctx context.Context, name string, args []string) error {
	fs := newFlagSet(name)
	electionID := fs.String("election", "", "election ID (default: active election)")
	file := fs.String("file", "", "csv or xlsx roster file")
	sheet := fs.String("sheet", "", "Google Sheets spreadsheet ID")
	readRange := fs.String("range", roster.DefaultSheetRange, "Google Sheets range")
	round := fs.Int("round", 0, "round for candidate rows without one (default: live round)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	rows, err := c.readRows(ctx, *file, *sheet, *readRange)
	if err != nil {
		return err
	}
	id, err := c.dir.Resolve(ctx, *electionID)
	if err != nil {
		return err
	}

	progress, finish := c.progressBar()
	var (
		n       int
		skipped []roster.RowError
	)
	if name == "import-candidates" {
		var cands []models.Candidate
		if cands, skipped, err = roster.ParseCandidates(rows, *round); err != nil {
			return err
		}
		n, err = c.console.ImportCandidates(ctx, id, cands, progress)
	} else {
		var voters []models.Voter
		if voters, skipped, err = roster.ParseVoters(rows); err != nil {
			return err
		}
		n, err = c.console.ImportVoters(ctx, id, voters, progress)
	}
	finish()
	if err != nil {
		return err
	}

	for _, s := range skipped {
		fmt.Fprintf(c.out, "skipped %s\n", s)
	}
	fmt.Fprintf(c.out, "imported %d rows into %s\n", n, id)
	return nil
}

func (c *cli) readRows(ctx context.Context, file, sheet, readRange string) ([][]string, error) {
	switch {
	case file != "" && sheet != "":
		return nil, fmt.Errorf("%w: use either -file or -sheet", errUsage)
	case sheet != "":
		if c.sheets == nil {
			return nil, errors.New("google sheets import needs GOOGLE_CREDENTIALS_FILE")
		}
		return c.sheets.Rows(ctx, sheet, readRange)
	case file != "":
		format, err := roster.ParseFormat(filepath.Ext(file))
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		return roster.ReadRows(format, data)
	}
	return nil, fmt.Errorf("%w: -file or -sheet is required", errUsage)
}

func (c *cli) results(ctx context.Context, args []string) error {
	fs := newFlagSet("results")
	electionID := fs.String("election", "", "election ID (default: active election)")
	officeName := fs.String("office", "", "office (default: all offices at their live round)")
	round := fs.Int("round", 0, "round (default: live round)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	id, err := c.dir.Resolve(ctx, *electionID)
	if err != nil {
		return err
	}

	var all []tally.Standings
	if *officeName == "" {
		o, err := c.reader.Overview(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s: %d of %d voters took part\n", id, o.Turnout, o.TotalVoters)
		all = o.Offices
	} else {
		office, err := models.ParseOffice(*officeName)
		if err != nil {
			return err
		}
		s, err := c.reader.Results(ctx, id, office, *round)
		if err != nil {
			return err
		}
		all = []tally.Standings{*s}
	}

	for _, s := range all {
		fmt.Fprintf(c.out, "\n%s round %d (%d ballots)\n", s.Office.Label(), s.Round, s.BallotsCast)
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RANK\tNAME\tVOTES\tELECTED")
		for _, st := range s.Candidates {
			elected := ""
			if st.Elected {
				elected = "yes"
			}
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", st.Rank, st.Name, st.Votes, elected)
		}
		tw.Flush()
	}
	return nil
}

func (c *cli) reset(ctx context.Context, args []string) error {
	fs := newFlagSet("reset")
	electionID := fs.String("election", "", "election ID (default: active election)")
	candidates := fs.Bool("candidates", false, "delete every candidate")
	voters := fs.Bool("voters", false, "delete every voter")
	votesOnly := fs.Bool("votes-only", false, "clear vote counts and participation")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	id, err := c.dir.Resolve(ctx, *electionID)
	if err != nil {
		return err
	}
	if !*yes {
		fmt.Fprintf(c.out, "reset election %s? type the election ID to confirm: ", id)
		line, _ := bufio.NewReader(c.in).ReadString('\n')
		if strings.TrimSpace(line) != id {
			return errors.New("reset cancelled")
		}
	}

	progress, finish := c.progressBar()
	res, err := c.console.ResetElection(ctx, id, admin.ResetOptions{
		Candidates: *candidates,
		Voters:     *voters,
		VotesOnly:  *votesOnly,
	}, progress)
	finish()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "candidates deleted %d, voters deleted %d, candidates reset %d, voters reset %d\n",
		res.CandidatesDeleted, res.VotersDeleted, res.CandidatesReset, res.VotersReset)
	return nil
}

// hashPassword reads the password from the first argument or from stdin.
func hashPassword(args []string, in io.Reader, out io.Writer) error {
	var password string
	if len(args) > 0 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return fmt.Errorf("%w: empty password", errUsage)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hash)
	return nil
}
