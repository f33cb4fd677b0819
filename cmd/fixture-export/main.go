package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirenlabs/siren/go-pipeline/internal/gate"
	"github.com/sirenlabs/siren/go-pipeline/internal/memory"
	"github.com/sirenlabs/siren/go-pipeline/internal/replay"
	"github.com/sirenlabs/siren/go-pipeline/internal/resonance"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to resonance memory db")
	sessionID := flag.String("session", "", "session to export")
	outPath := flag.String("out", "", "output fixture path (default stdout)")
	description := flag.String("description", "", "fixture description")
	flag.Parse()

	if *dbPath == "" || *sessionID == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/siren.db --session <id> [--out fixture.json] [--description text]")
		os.Exit(2)
	}

	store, err := memory.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	records, err := store.QueryBySession(*sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query session: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Fprintf(os.Stderr, "no records found for session %s\n", *sessionID)
		os.Exit(1)
	}

	fixture := buildFixture(records, *description)

	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal fixture: %v\n", err)
		os.Exit(1)
	}
	data = append(data, '\n')

	if *outPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write fixture: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("exported %d steps to %s\n", len(fixture.Steps), *outPath)
}

// #endregion main

// #region build

// buildFixture converts a session's emission records into a replay fixture.
// The recorded actions become the expected results, so replaying the fixture
// against the same config checks gate determinism end to end.
func buildFixture(records []memory.EmissionRecord, description string) replay.Fixture {
	if description == "" {
		description = fmt.Sprintf("exported from session %s (%d steps)", records[0].SessionID, len(records))
	}

	f := replay.Fixture{
		Description: description,
		Config:      defaultFixtureConfig(),
	}

	for _, s := range replay.FromRecords(records) {
		f.Steps = append(f.Steps, replay.FixtureStep{
			StepIndex:     s.Input.StepIndex,
			TimestampUnix: s.Input.Timestamp.Unix(),
			Resonance:     s.Input.Resonance,
			NormBase:      s.Input.NormBase,
			Entropy:       s.Input.Entropy,
			HasCandidate:  s.Input.HasCandidate,
			Token:         s.Token,
			Vocab:         s.Vocab,
		})
	}
	for _, r := range records {
		f.ExpectedResults = append(f.ExpectedResults, replay.FixtureExpectedResult{
			StepIndex: r.StepIndex,
			Action:    r.Action,
		})
	}
	return f
}

func defaultFixtureConfig() replay.FixtureConfig {
	g := gate.DefaultConfig()
	a := resonance.DefaultAlphaConfig()
	return replay.FixtureConfig{
		GateConfig: replay.FixtureGateConfig{
			ResonanceMin:    g.ResonanceMin,
			NormLogitMax:    g.NormLogitMax,
			EntropyGate:     g.EntropyGate,
			EntropyMin:      g.EntropyMin,
			HysteresisDelta: g.HysteresisDelta,
			CooldownSteps:   g.CooldownSteps,
			CooldownSeconds: g.CooldownSeconds,
			ToleranceGain:   g.ToleranceGain,
		},
		AlphaConfig: replay.FixtureAlphaConfig{
			Enabled:  a.Enabled,
			Base:     a.Base,
			Min:      a.Min,
			Max:      a.Max,
			Mapping:  string(a.Mapping),
			Pivot:    a.Pivot,
			Slope:    a.Slope,
			MaxShift: a.MaxShift,
		},
	}
}

// #endregion build
