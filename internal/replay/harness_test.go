package replay

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/sirenlabs/siren/go-pipeline/internal/gate"
	"github.com/sirenlabs/siren/go-pipeline/internal/memory"
)

func recordedSteps() []Step {
	mk := func(step int64, res, entropy float64, has bool) Step {
		return Step{
			Input: gate.StepInput{
				StepIndex:    step,
				Timestamp:    time.Unix(1700000000+step, 0).UTC(),
				Resonance:    res,
				NormBase:     0.1,
				Entropy:      entropy,
				HasCandidate: has,
			},
			Token: "παρθένος",
			Vocab: "grc",
		}
	}
	return []Step{
		mk(1, 0.2, 1.2, true),
		mk(2, 0.85, 1.6, true),
		mk(3, 0.85, 1.8, true),
		mk(4, 0.85, 1.4, true),
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	steps := recordedSteps()
	first := Replay(steps, DefaultReplayConfig())
	for i := 0; i < 5; i++ {
		again := Replay(steps, DefaultReplayConfig())
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: replay diverged for identical input", i)
		}
	}
}

func TestReplayEmitsOncePerSustainedSignal(t *testing.T) {
	results := Replay(recordedSteps(), DefaultReplayConfig())
	summary := Summarize(results)
	if summary.Emitted != 1 {
		t.Fatalf("expected exactly 1 emission, got %d", summary.Emitted)
	}
	if results[2].Action != memory.ActionEmitCandidate {
		t.Fatalf("expected emission at step 3, got %s", results[2].Action)
	}
	if results[2].Token != "παρθένος" || results[2].Vocab != "grc" {
		t.Fatalf("emission lost its token: %+v", results[2])
	}
	// The arming step at 2 counts as a suppression; step 4 falls out of
	// cooldown and disqualifies on entropy.
	if summary.Suppressed != 1 || summary.Defaults != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.FinalState.Phase != gate.PhaseIdle {
		t.Fatalf("expected final state idle, got %s", summary.FinalState.Phase)
	}
}

func TestFromRecordsReconstructsGateInputs(t *testing.T) {
	records := []memory.EmissionRecord{
		{
			SessionID: "s1", Seq: 1, StepIndex: 1,
			CreatedAt: time.Unix(1700000001, 0).UTC(),
			Action:    memory.ActionEmitCandidate,
			Token:     "παρθένος", Vocab: "grc",
			Resonance: 0.82, Entropy: 1.8,
			HasCandidate: true, NormBase: 0.18,
			TopK: []memory.ScoredCandidate{
				{Token: "παρθένος", Vocab: "grc", NormBase: 0.18, Resonance: 0.82},
			},
		},
		{
			SessionID: "s1", Seq: 2, StepIndex: 2,
			CreatedAt: time.Unix(1700000002, 0).UTC(),
			Action:    memory.ActionEmitDefault,
			Entropy:   1.1,
		},
	}

	steps := FromRecords(records)
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if !steps[0].Input.HasCandidate || steps[0].Input.Resonance != 0.82 || steps[0].Input.NormBase != 0.18 {
		t.Fatalf("candidate step not reconstructed: %+v", steps[0].Input)
	}
	if steps[0].Token != "παρθένος" {
		t.Fatalf("token lost: %+v", steps[0])
	}
	if steps[1].Input.HasCandidate || steps[1].Input.Resonance != 0 {
		t.Fatalf("candidate-free step must replay candidate-free: %+v", steps[1].Input)
	}
}

func TestFromRecordsHoldsArmedThroughNativeContender(t *testing.T) {
	// A native non-argmax contender inside the hysteresis band records as an
	// ordinary emit_default, yet the live gate held ARMED through it. The
	// replayed transitions have to match.
	records := []memory.EmissionRecord{
		{
			SessionID: "s1", Seq: 1, StepIndex: 1,
			CreatedAt: time.Unix(1700000001, 0).UTC(),
			Action:    memory.ActionSuppressedCandidate,
			Token:     "abduction", Vocab: "native",
			Resonance: 0.85, Entropy: 1.6,
			HasCandidate: true, NormBase: 0.10,
			TopK: []memory.ScoredCandidate{
				{Token: "παρθένος", Vocab: "grc", NormBase: 0.10, Resonance: 0.85},
			},
		},
		{
			SessionID: "s1", Seq: 2, StepIndex: 2,
			CreatedAt: time.Unix(1700000002, 0).UTC(),
			Action:    memory.ActionEmitDefault,
			Token:     "abduction", Vocab: "native",
			Resonance: 0.68, Entropy: 1.7,
			HasCandidate: true, NormBase: 0.60,
			TopK: []memory.ScoredCandidate{
				{Token: "justice", Vocab: "native", NormBase: 0.60, Resonance: 0.68},
			},
		},
		{
			SessionID: "s1", Seq: 3, StepIndex: 3,
			CreatedAt: time.Unix(1700000003, 0).UTC(),
			Action:    memory.ActionEmitCandidate,
			Token:     "παρθένος", Vocab: "grc",
			Resonance: 0.85, Entropy: 1.8,
			HasCandidate: true, NormBase: 0.10,
			TopK: []memory.ScoredCandidate{
				{Token: "παρθένος", Vocab: "grc", NormBase: 0.10, Resonance: 0.85},
			},
		},
	}

	check := func(records []memory.EmissionRecord) {
		t.Helper()
		results := Replay(FromRecords(records), DefaultReplayConfig())
		for i, rec := range records {
			if results[i].Action != rec.Action {
				t.Fatalf("step %d: recorded %s, replayed %s (%s)",
					rec.StepIndex, rec.Action, results[i].Action, results[i].Reason)
			}
		}
	}

	check(records)

	// Compaction nulls the candidate snapshots but must not change the
	// replayed transitions.
	for i := range records {
		records[i].TopK = nil
	}
	check(records)
}

func TestFixtureRoundTrip(t *testing.T) {
	fixture := Fixture{
		Description: "sustained signal emits once",
		Config: FixtureConfig{
			GateConfig: FixtureGateConfig{
				ResonanceMin:    0.70,
				NormLogitMax:    0.30,
				EntropyGate:     true,
				EntropyMin:      1.5,
				HysteresisDelta: 0.05,
				CooldownSeconds: 1.0,
			},
			AlphaConfig: FixtureAlphaConfig{
				Enabled: true, Base: 0.5, Max: 1.0,
				Mapping: "linear", Pivot: 1.5, Slope: 0.1, MaxShift: 0.25,
			},
		},
		Steps: []FixtureStep{
			{StepIndex: 1, TimestampUnix: 1700000001, Resonance: 0.85, NormBase: 0.1, Entropy: 1.6, HasCandidate: true, Token: "παρθένος", Vocab: "grc"},
			{StepIndex: 2, TimestampUnix: 1700000002, Resonance: 0.85, NormBase: 0.1, Entropy: 1.8, HasCandidate: true, Token: "παρθένος", Vocab: "grc"},
		},
		ExpectedResults: []FixtureExpectedResult{
			{StepIndex: 1, Action: memory.ActionSuppressedCandidate},
			{StepIndex: 2, Action: memory.ActionEmitCandidate},
		},
	}

	path := filepath.Join(t.TempDir(), "fixture.json")
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	steps := make([]Step, len(loaded.Steps))
	for i := range loaded.Steps {
		steps[i] = loaded.Steps[i].ToStep()
	}
	results := Replay(steps, loaded.Config.ToReplayConfig())

	for i, exp := range loaded.ExpectedResults {
		if results[i].Action != exp.Action {
			t.Fatalf("step %d: expected %s, got %s (%s)", exp.StepIndex, exp.Action, results[i].Action, results[i].Reason)
		}
	}
}

func TestLoadFixtureMissingFile(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}
