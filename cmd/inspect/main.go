package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirenlabs/siren/go-pipeline/internal/memory"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to resonance memory db")
	session := flag.String("session", "", "show one session's emission records")
	token := flag.String("token", "", "show emission history for one token")
	since := flag.String("since", "", "lower bound, RFC3339 (with --until)")
	until := flag.String("until", "", "upper bound, RFC3339 (with --since)")
	stats := flag.Bool("stats", false, "show per-action counts for --session")
	compact := flag.String("compact", "", "drop candidate snapshots older than RFC3339 time")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/siren.db (--session id [--stats] | --token tok | --since t --until t | --compact t) [--json]")
		os.Exit(2)
	}

	store, err := memory.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *compact != "":
		err = runCompact(store, *compact)
	case *stats && *session != "":
		err = runStats(store, *session, *jsonOut)
	case *session != "":
		err = printRecords(store.QueryBySession(*session))(*jsonOut)
	case *token != "":
		err = printRecords(store.QueryByToken(*token))(*jsonOut)
	case *since != "" && *until != "":
		err = runTimeRange(store, *since, *until, *jsonOut)
	default:
		fmt.Fprintln(os.Stderr, "one of --session, --token, --since/--until, or --compact is required")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region modes

func runStats(store *memory.Store, sessionID string, jsonOut bool) error {
	st, err := store.SessionStats(sessionID)
	if err != nil {
		return err
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(st)
	}
	total := st.Emitted + st.Suppressed + st.Defaults
	fmt.Printf("Session %s: %d steps\n", st.SessionID, total)
	fmt.Printf("  emitted:    %d\n", st.Emitted)
	fmt.Printf("  suppressed: %d\n", st.Suppressed)
	fmt.Printf("  defaults:   %d\n", st.Defaults)
	return nil
}

func runTimeRange(store *memory.Store, since, until string, jsonOut bool) error {
	from, err := time.Parse(time.RFC3339, since)
	if err != nil {
		return fmt.Errorf("parse --since: %w", err)
	}
	to, err := time.Parse(time.RFC3339, until)
	if err != nil {
		return fmt.Errorf("parse --until: %w", err)
	}
	return printRecords(store.QueryByTimeRange(from, to))(jsonOut)
}

func runCompact(store *memory.Store, before string) error {
	t, err := time.Parse(time.RFC3339, before)
	if err != nil {
		return fmt.Errorf("parse --compact: %w", err)
	}
	n, err := store.Compact(t)
	if err != nil {
		return err
	}
	fmt.Printf("compacted %d records (candidate snapshots dropped, decisions kept)\n", n)
	return nil
}

// #endregion modes

// #region output

// printRecords curries the query result so the mode dispatch stays flat.
func printRecords(records []memory.EmissionRecord, err error) func(bool) error {
	return func(jsonOut bool) error {
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "no records found")
			return nil
		}
		if jsonOut {
			return json.NewEncoder(os.Stdout).Encode(records)
		}

		fmt.Printf("%-10s %-6s %-22s %-16s %-8s %-10s %-8s %s\n",
			"Session", "Seq", "Action", "Token", "Vocab", "Resonance", "Entropy", "Created")
		for _, r := range records {
			fmt.Printf("%-10s %-6d %-22s %-16s %-8s %-10.4f %-8.4f %s\n",
				shorten(r.SessionID, 10), r.Seq, r.Action, shorten(r.Token, 16), r.Vocab,
				r.Resonance, r.Entropy, r.CreatedAt.Format("2006-01-02T15:04:05Z"))
		}
		fmt.Printf("\n%d records\n", len(records))
		return nil
	}
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "+"
}

// #endregion output
