package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirenlabs/siren/go-pipeline/internal/config"
	"github.com/sirenlabs/siren/go-pipeline/internal/memory"
	"github.com/sirenlabs/siren/go-pipeline/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to resonance memory db (DB mode)")
	sessionID := flag.String("session", "", "session to replay (DB mode)")
	configPath := flag.String("config", "", "YAML profile the session was recorded under (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/siren.db --session <id> [--config profile.yaml]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *sessionID, *configPath)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-mode

func runDBMode(dbPath, sessionID, configPath string) int {
	if sessionID == "" {
		fmt.Fprintln(os.Stderr, "--session is required in DB mode")
		return 2
	}

	// Sessions recorded under a non-default profile must be replayed under
	// the same profile or every step prints DIFF.
	rc := replay.DefaultReplayConfig()
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			return 2
		}
		rc = replay.ReplayConfig{GateConfig: cfg.GateConfig(), AlphaConfig: cfg.AlphaConfig()}
	}

	store, err := memory.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	records, err := store.QueryBySession(sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query session: %v\n", err)
		return 2
	}
	if len(records) == 0 {
		fmt.Fprintf(os.Stderr, "no records found for session %s\n", sessionID)
		return 2
	}

	steps := replay.FromRecords(records)
	results := replay.Replay(steps, rc)

	expected := make([]string, len(records))
	for i, r := range records {
		expected[i] = r.Action
	}

	return printComparison(results, expected)
}

// #endregion db-mode

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	steps := make([]replay.Step, len(f.Steps))
	for i := range f.Steps {
		steps[i] = f.Steps[i].ToStep()
	}

	results := replay.Replay(steps, f.Config.ToReplayConfig())

	expected := make([]string, len(f.ExpectedResults))
	for i, e := range f.ExpectedResults {
		expected[i] = e.Action
	}

	return printComparison(results, expected)
}

// #endregion fixture-mode

// #region output

// printComparison outputs a comparison table and returns the exit code.
// expected holds the reference actions (from the DB or the fixture).
func printComparison(results []replay.ReplayResult, expected []string) int {
	fmt.Printf("%-8s| %-22s| %-22s| %s\n", "Step", "Expected", "Replayed", "Match")
	fmt.Printf("%-8s+%-23s+%-23s+%s\n",
		"--------", "-----------------------", "-----------------------", "------")

	matches := 0
	total := len(results)
	if len(expected) < total {
		total = len(expected)
	}

	for i := 0; i < total; i++ {
		exp := expected[i]
		got := results[i].Action
		match := "DIFF"
		if exp == got {
			match = "OK"
			matches++
		}
		fmt.Printf("%-8d| %-22s| %-22s| %s\n", results[i].StepIndex, exp, got, match)
	}

	summary := replay.Summarize(results)
	diverge := total - matches
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", total, matches, diverge)
	fmt.Printf("Replayed actions: %d emitted, %d suppressed, %d defaults\n",
		summary.Emitted, summary.Suppressed, summary.Defaults)

	if diverge > 0 {
		return 1
	}
	return 0
}

// #endregion output
