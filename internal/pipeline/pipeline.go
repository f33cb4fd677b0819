package pipeline

// #region imports
import (
	"context"
	"log"
	"time"

	"github.com/sirenlabs/siren/go-pipeline/internal/candidate"
	"github.com/sirenlabs/siren/go-pipeline/internal/embedding"
	"github.com/sirenlabs/siren/go-pipeline/internal/gate"
	"github.com/sirenlabs/siren/go-pipeline/internal/gloss"
	"github.com/sirenlabs/siren/go-pipeline/internal/intent"
	"github.com/sirenlabs/siren/go-pipeline/internal/memory"
	"github.com/sirenlabs/siren/go-pipeline/internal/metrics"
	"github.com/sirenlabs/siren/go-pipeline/internal/resonance"
	"github.com/sirenlabs/siren/go-pipeline/internal/strain"
	"github.com/sirenlabs/siren/go-pipeline/internal/tolerance"
)

// #endregion imports

// #region pipeline

// Pipeline runs the full decision flow for one decoding step: intent ->
// candidates -> resonance -> kairos gate -> memory. It holds no per-session
// state; everything session-scoped lives on the Session passed in.
type Pipeline struct {
	embedder  Embedder
	generator *candidate.Generator
	opts      Options
	sink      RecordSink
	stats     StatsSource
	tolEval   *tolerance.Evaluator
	gloss     *gloss.Client
}

// New wires a pipeline. sink, stats, and glossClient may be nil: a nil sink
// disables recording (tests), a nil stats source disables tolerance
// adaptation, a nil gloss client disables gloss requests.
func New(embedder Embedder, searcher candidate.Searcher, opts Options,
	sink RecordSink, stats StatsSource, tolCfg tolerance.Config, glossClient *gloss.Client) *Pipeline {
	return &Pipeline{
		embedder:  embedder,
		generator: candidate.NewGenerator(searcher, opts.Generator),
		opts:      opts,
		sink:      sink,
		stats:     stats,
		tolEval:   tolerance.NewEvaluator(tolCfg),
		gloss:     glossClient,
	}
}

// #endregion pipeline

// #region step

// Step evaluates one decoding step for the session. It always produces
// exactly one emission record, and no failure inside the step is fatal: the
// worst outcome is a silent fallback to the decoder's native best token.
func (p *Pipeline) Step(ctx context.Context, s *Session, in StepInput) StepOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.Default().ObserveStepSeconds(time.Since(start).Seconds())
	}()

	s.StepIndex++
	out := StepOutcome{
		SessionID: s.ID,
		StepIndex: s.StepIndex,
	}

	ts := time.Unix(in.TimestampUnix, 0).UTC()
	if in.TimestampUnix == 0 {
		ts = time.Now().UTC()
	}

	// 1. Context window and intent.
	p.refreshWindow(ctx, s, in)
	iv, intentOK := p.buildIntent(s, &out)
	out.Intent = iv

	// 2. Entropy/strain.
	logits := make([]float64, len(in.Native))
	for i, n := range in.Native {
		logits[i] = n.Logit
	}
	out.Entropy = strain.Resolve(in.Entropy, in.HasEntropy, in.Probs, logits)

	// 3. Dynamic blend weight. Without a usable intent the step degrades to
	// pure probability ranking; baseline decoder behavior.
	alpha := resonance.KairosAlpha(p.opts.Alpha, out.Entropy.Entropy)
	if !intentOK {
		alpha = 1.0
	}
	out.Alpha = alpha

	// 4. Candidate set.
	native := p.nativeCandidates(ctx, in, &out)
	genRes := candidate.Result{Candidates: native}
	if intentOK {
		genRes = p.generator.Generate(ctx, native, iv)
	}
	if genRes.Degraded {
		out.Degraded = append(out.Degraded, "index_unavailable")
	}

	// 5. Resonance ranking.
	out.Ranked = resonance.Rank(genRes.Candidates, iv, alpha)

	// 6. Kairos gate on the best-scoring candidate.
	defaultTok, defaultOK := nativeBest(in.Native)
	gateIn := gate.StepInput{
		StepIndex: s.StepIndex,
		Timestamp: ts,
		Entropy:   out.Entropy.Entropy,
	}
	if len(out.Ranked) > 0 {
		top := out.Ranked[0]
		// The moment only matters when the contender is not already the
		// decoder's native best.
		if intentOK && top.Candidate.Token != defaultTok {
			gateIn.HasCandidate = true
			gateIn.Resonance = top.Resonance
			gateIn.NormBase = top.NormBase
		}
	}

	g := gate.NewGate(p.gateConfig(s))
	newState, decision := g.Evaluate(s.GateState, gateIn)
	s.GateState = newState
	out.Gate = decision
	out.GateState = newState

	// 7. Resolve the surfaced token.
	switch {
	case decision.Action == gate.ActionEmitCandidate && len(out.Ranked) > 0:
		out.Action = memory.ActionEmitCandidate
		out.Token = out.Ranked[0].Candidate.Token
		out.Vocab = out.Ranked[0].Candidate.Vocab
		out.Resonance = out.Ranked[0].Resonance
		if p.gloss != nil && out.Vocab != "native" {
			p.gloss.LookupAsync(out.Token, out.Vocab)
		}
	case gateIn.HasCandidate && decision.Qualified:
		// A qualifying-strength candidate was held back by hysteresis or
		// cooldown: a suppression event for the tolerance signal.
		out.Action = memory.ActionSuppressedCandidate
		out.Token = defaultTok
		out.Vocab = "native"
		out.Resonance = gateIn.Resonance
	default:
		out.Action = memory.ActionEmitDefault
		out.Token = defaultTok
		out.Vocab = "native"
		if len(out.Ranked) > 0 {
			out.Resonance = out.Ranked[0].Resonance
		}
	}
	if !defaultOK && decision.Action != gate.ActionEmitCandidate {
		// No native candidates at all this step; nothing to surface.
		out.Token = ""
		out.Vocab = ""
	}

	metrics.Default().IncDecision(out.Action)

	// 8. Record the decision, emitted or not.
	p.record(s, out, gateIn, ts)

	// 9. Periodic tolerance refresh from memory.
	p.refreshTolerance(s)

	return out
}

// #endregion step

// #region intent

// refreshWindow re-embeds the context window when it changed. Embeddings are
// fetched in one batch; on failure the previous window is kept.
func (p *Pipeline) refreshWindow(ctx context.Context, s *Session, in StepInput) {
	if len(in.ContextTokens) == 0 || p.embedder == nil {
		return
	}
	tokens := in.ContextTokens
	if n := p.opts.IntentStyle.Window; n > 0 && len(tokens) > n {
		tokens = tokens[len(tokens)-n:]
	}
	sup := in.Suppressed
	if len(sup) == len(in.ContextTokens) && len(tokens) < len(in.ContextTokens) {
		sup = sup[len(in.ContextTokens)-len(tokens):]
	}

	if sameWindow(s.window, tokens) {
		return
	}

	embs, err := p.embedder.Embed(ctx, tokens)
	if err != nil || len(embs) != len(tokens) {
		log.Printf("[PIPE] context embed failed (session=%s): %v", s.ID, err)
		metrics.Default().IncDegradation("embed_failed")
		return
	}

	window := make([]intent.ContextItem, len(tokens))
	for i, t := range tokens {
		item := intent.ContextItem{Token: t, Embedding: embs[i]}
		if len(sup) == len(tokens) {
			item.Suppressed = sup[i]
		}
		window[i] = item
	}
	s.window = window
}

// buildIntent constructs (or, on a stride step, reuses) the intent vector.
// Returns false when there is no usable context, the recoverable
// EmptyContext case.
func (p *Pipeline) buildIntent(s *Session, out *StepOutcome) (intent.Vector, bool) {
	style := p.opts.IntentStyle
	if style.Stride > 1 && s.StepIndex%int64(style.Stride) != 1 && !s.lastIntent.Embedding.IsZero() {
		return s.lastIntent, true
	}

	var iv intent.Vector
	var err error
	switch style.Method {
	case intent.MethodSIF:
		iv, err = intent.SIF(s.window, style.Window, style.IDF, style.SIFA)
	case intent.MethodSuppressionAware:
		iv, err = intent.SuppressionAware(s.window, style.Window, style.Boost)
	default:
		iv, err = intent.Mean(s.window, style.Window)
	}
	if err != nil {
		out.Degraded = append(out.Degraded, "empty_context")
		metrics.Default().IncDegradation("empty_context")
		return intent.Vector{}, false
	}
	s.lastIntent = iv
	return iv, true
}

// #endregion intent

// #region candidates

// nativeCandidates embeds the decoder's top-K and tags them as native.
// Tokens the embedder cannot cover are dropped individually.
func (p *Pipeline) nativeCandidates(ctx context.Context, in StepInput, out *StepOutcome) []candidate.Candidate {
	if len(in.Native) == 0 {
		return nil
	}
	tokens := make([]string, len(in.Native))
	for i, n := range in.Native {
		tokens[i] = n.Token
	}

	var embs []embedding.Vector
	if p.embedder != nil {
		var err error
		embs, err = p.embedder.Embed(ctx, tokens)
		if err != nil || len(embs) != len(tokens) {
			log.Printf("[PIPE] native embed failed: %v", err)
			metrics.Default().IncDegradation("embed_failed")
			out.Degraded = append(out.Degraded, "embed_failed")
			embs = nil
		}
	}

	cands := make([]candidate.Candidate, 0, len(in.Native))
	for i, n := range in.Native {
		c := candidate.Candidate{
			Token:       n.Token,
			Vocab:       "native",
			BaseScore:   n.Logit,
			BaseIsLogit: true,
		}
		if embs != nil {
			c.Embedding = embs[i]
		}
		cands = append(cands, c)
	}
	return cands
}

// nativeBest returns the decoder's argmax token.
func nativeBest(native []NativeToken) (string, bool) {
	if len(native) == 0 {
		return "", false
	}
	best := native[0]
	for _, n := range native[1:] {
		if n.Logit > best.Logit {
			best = n
		}
	}
	return best.Token, true
}

// #endregion candidates

// #region record

// record appends exactly one emission record for the step, fire-and-forget.
// The gate inputs are persisted verbatim so a replay re-evaluates the exact
// step the live gate saw, not a reconstruction of it.
func (p *Pipeline) record(s *Session, out StepOutcome, gateIn gate.StepInput, ts time.Time) {
	if p.sink == nil {
		return
	}
	k := p.opts.RecordTopK
	if k <= 0 {
		k = 5
	}
	if k > len(out.Ranked) {
		k = len(out.Ranked)
	}
	topK := make([]memory.ScoredCandidate, k)
	for i := 0; i < k; i++ {
		sc := out.Ranked[i]
		topK[i] = memory.ScoredCandidate{
			Token:     sc.Candidate.Token,
			Vocab:     sc.Candidate.Vocab,
			BaseScore: sc.Candidate.BaseScore,
			NormBase:  sc.NormBase,
			Fidelity:  sc.Fidelity,
			Resonance: sc.Resonance,
		}
	}

	p.sink.Record(memory.EmissionRecord{
		SessionID:    s.ID,
		StepIndex:    out.StepIndex,
		CreatedAt:    ts,
		Action:       out.Action,
		Token:        out.Token,
		Vocab:        out.Vocab,
		Resonance:    out.Resonance,
		Entropy:      out.Entropy.Entropy,
		HasCandidate: gateIn.HasCandidate,
		NormBase:     gateIn.NormBase,
		TopK:         topK,
		GateState:    out.GateState,
	})
}

// #endregion record

// #region tolerance

// gateConfig applies the session's current tolerance to the base thresholds.
func (p *Pipeline) gateConfig(s *Session) gate.Config {
	if s.tolerance == 0 {
		return p.opts.Gate
	}
	return gate.ApplyTolerance(p.opts.Gate, s.tolerance)
}

// refreshTolerance re-derives the symbolic tolerance from recorded history
// every ToleranceEvery steps. Read-only against the store; the gate applies
// the result.
func (p *Pipeline) refreshTolerance(s *Session) {
	if p.stats == nil || p.opts.ToleranceEvery <= 0 {
		return
	}
	s.tolAge++
	if s.tolAge < p.opts.ToleranceEvery {
		return
	}
	s.tolAge = 0

	st, err := p.stats.SessionStats(s.ID)
	if err != nil {
		log.Printf("[PIPE] tolerance stats failed (session=%s): %v", s.ID, err)
		return
	}
	res := p.tolEval.Run(st)
	if res.Tolerance != s.tolerance {
		log.Printf("[PIPE] tolerance updated (session=%s): %.4f -> %.4f (%s)",
			s.ID, s.tolerance, res.Tolerance, res.Reason)
		s.tolerance = res.Tolerance
	}
}

// #endregion tolerance

// #region helpers

func sameWindow(window []intent.ContextItem, tokens []string) bool {
	if len(window) != len(tokens) {
		return false
	}
	for i, t := range tokens {
		if window[i].Token != t {
			return false
		}
	}
	return len(window) > 0
}

// #endregion helpers
