package ensemble

import (
	"encoding/gob"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/kari1998/loan-default-prediction/core/model"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
	"github.com/kari1998/loan-default-prediction/pkg/log"
)

func init() {
	gob.Register(&GradientBoostingClassifier{})
}

// BoostNode is one node of a boosted regression tree. Leaves carry the
// unscaled weight -G/(H+lambda); internal nodes carry the split gain.
type BoostNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Weight    float64
	Gain      float64
}

// BoostTree is a flat boosted tree rooted at index 0.
type BoostTree struct {
	Nodes []BoostNode
}

func (t *BoostTree) predict(row []float64) float64 {
	k := 0
	for t.Nodes[k].Left >= 0 {
		nd := &t.Nodes[k]
		if row[nd.Feature] <= nd.Threshold {
			k = nd.Left
		} else {
			k = nd.Right
		}
	}
	return t.Nodes[k].Weight
}

// GradientBoostingClassifier is a binary boosted tree ensemble trained on
// the log loss with gradient and hessian statistics, growing each tree
// level by level with exact greedy splits.
type GradientBoostingClassifier struct {
	model.BaseEstimator

	NEstimators    int
	LearningRate   float64
	MaxDepth       int
	Lambda         float64
	MinChildWeight float64
	Gamma          float64
	BaseScore      float64

	Trees   []BoostTree
	Classes []float64

	GainSum   []float64
	GainCount []int
}

// GradientBoostingOption is a functional option.
type GradientBoostingOption func(*GradientBoostingClassifier)

// NewGradientBoostingClassifier creates a booster with 100 rounds, eta 0.3,
// depth 6, lambda 1, min child weight 1, gamma 0 and base score 0.5.
func NewGradientBoostingClassifier(opts ...GradientBoostingOption) *GradientBoostingClassifier {
	gb := &GradientBoostingClassifier{
		NEstimators:    100,
		LearningRate:   0.3,
		MaxDepth:       6,
		Lambda:         1,
		MinChildWeight: 1,
		BaseScore:      0.5,
	}
	gb.ModelType = "GradientBoostingClassifier"
	for _, opt := range opts {
		opt(gb)
	}
	return gb
}

// WithGBNEstimators sets the number of boosting rounds.
func WithGBNEstimators(n int) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.NEstimators = n }
}

// WithLearningRate sets the shrinkage applied to every tree.
func WithLearningRate(eta float64) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.LearningRate = eta }
}

// WithGBMaxDepth sets the depth of every tree.
func WithGBMaxDepth(depth int) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.MaxDepth = depth }
}

// WithLambda sets the L2 penalty on leaf weights.
func WithLambda(lambda float64) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.Lambda = lambda }
}

// WithMinChildWeight sets the minimum hessian sum per child.
func WithMinChildWeight(w float64) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.MinChildWeight = w }
}

// WithGamma sets the minimum gain a split must reach.
func WithGamma(gamma float64) GradientBoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.Gamma = gamma }
}

// Name returns the display name.
func (gb *GradientBoostingClassifier) Name() string { return "XGBoost" }

func (gb *GradientBoostingClassifier) validate() error {
	if gb.NEstimators < 1 {
		return lrErrors.NewValidationError("n_estimators", "must be positive", gb.NEstimators)
	}
	if gb.LearningRate <= 0 {
		return lrErrors.NewValidationError("learning_rate", "must be positive", gb.LearningRate)
	}
	if gb.MaxDepth < 1 {
		return lrErrors.NewValidationError("max_depth", "must be positive", gb.MaxDepth)
	}
	if gb.Lambda < 0 {
		return lrErrors.NewValidationError("lambda", "must be non-negative", gb.Lambda)
	}
	if gb.BaseScore <= 0 || gb.BaseScore >= 1 {
		return lrErrors.NewValidationError("base_score", "must lie in (0, 1)", gb.BaseScore)
	}
	return nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1 + ez)
}

func (gb *GradientBoostingClassifier) baseMargin() float64 {
	return math.Log(gb.BaseScore / (1 - gb.BaseScore))
}

// Fit trains the booster. y must hold exactly two classes; the larger
// label is the positive class.
func (gb *GradientBoostingClassifier) Fit(X, y mat.Matrix) (err error) {
	defer lrErrors.Recover(&err, "GradientBoostingClassifier.Fit")
	if err := gb.validate(); err != nil {
		return err
	}
	nSamples, nFeatures, err := model.CheckXY("GradientBoostingClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	classes := model.UniqueClasses(y)
	if len(classes) != 2 {
		return lrErrors.NewValueError("GradientBoostingClassifier.Fit", "exactly two classes are required")
	}

	logger := log.GetLoggerWithName("ensemble").With(log.ModelNameKey, "GradientBoostingClassifier")
	start := time.Now()
	logger.Info("training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"rounds", gb.NEstimators)

	xD := mat.DenseCopyOf(X)
	target := make([]float64, nSamples)
	for i := range target {
		if y.At(i, 0) == classes[1] {
			target[i] = 1
		}
	}

	// feature-wise sample order, shared by every tree
	order := make([][]int, nFeatures)
	for f := range order {
		idx := make([]int, nSamples)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return xD.At(idx[a], f) < xD.At(idx[b], f) })
		order[f] = idx
	}

	g := &growth{
		gb:    gb,
		x:     xD,
		order: order,
		grad:  make([]float64, nSamples),
		hess:  make([]float64, nSamples),
		where: make([]int, nSamples),
	}
	gb.GainSum = make([]float64, nFeatures)
	gb.GainCount = make([]int, nFeatures)
	gb.Trees = gb.Trees[:0]

	margin := make([]float64, nSamples)
	for i := range margin {
		margin[i] = gb.baseMargin()
	}
	for round := 0; round < gb.NEstimators; round++ {
		for i, m := range margin {
			p := sigmoid(m)
			g.grad[i] = p - target[i]
			g.hess[i] = math.Max(p*(1-p), 1e-16)
		}
		t := g.grow()
		for i := range margin {
			margin[i] += gb.LearningRate * t.Nodes[g.where[i]].Weight
		}
		gb.Trees = append(gb.Trees, t)
		if round%10 == 0 {
			logger.Debug("boosting round", log.IterationKey, round, "nodes", len(t.Nodes))
		}
	}

	var loss float64
	for i, m := range margin {
		p := math.Min(math.Max(sigmoid(m), 1e-15), 1-1e-15)
		loss -= target[i]*math.Log(p) + (1-target[i])*math.Log(1-p)
	}
	loss /= float64(nSamples)
	if err := lrErrors.CheckScalar("GradientBoostingClassifier.Fit", loss, gb.NEstimators); err != nil {
		return err
	}

	gb.Classes = classes
	gb.SetDimensions(nSamples, nFeatures)
	gb.SetFitted()
	logger.Info("training finished",
		"train_logloss", loss,
		log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

// growth holds the per-fit state shared across rounds.
type growth struct {
	gb    *GradientBoostingClassifier
	x     *mat.Dense
	order [][]int
	grad  []float64
	hess  []float64
	where []int // node index of each sample in the tree being grown
}

type nodeStats struct {
	g, h float64
}

type candidate struct {
	feature   int
	threshold float64
	gain      float64
	gl, hl    float64
}

// scan tracks the running left sums of one node while a feature is swept.
type scan struct {
	gl, hl float64
	last   float64
	seen   bool
}

func (g *growth) weight(s nodeStats) float64 {
	return -s.g / (s.h + g.gb.Lambda)
}

func (g *growth) score(gs, hs float64) float64 {
	return gs * gs / (hs + g.gb.Lambda)
}

// grow builds one tree level by level. Every level sweeps each feature
// once in presorted order, updating all open nodes together.
func (g *growth) grow() BoostTree {
	var total nodeStats
	for i := range g.where {
		g.where[i] = 0
		total.g += g.grad[i]
		total.h += g.hess[i]
	}
	t := BoostTree{Nodes: []BoostNode{{Feature: -1, Left: -1, Right: -1, Weight: g.weight(total)}}}
	stats := []nodeStats{total}
	open := []int{0}
	mcw := g.gb.MinChildWeight

	for depth := 0; depth < g.gb.MaxDepth && len(open) > 0; depth++ {
		slot := make(map[int]int, len(open))
		for k, nd := range open {
			slot[nd] = k
		}
		best := make([]candidate, len(open))
		for k := range best {
			best[k] = candidate{feature: -1}
		}
		scans := make([]scan, len(open))

		for f, idx := range g.order {
			clear(scans)
			for _, i := range idx {
				k, ok := slot[g.where[i]]
				if !ok {
					continue
				}
				sc := &scans[k]
				v := g.x.At(i, f)
				if sc.seen && v > sc.last {
					st := stats[open[k]]
					gr, hr := st.g-sc.gl, st.h-sc.hl
					if sc.hl >= mcw && hr >= mcw {
						gain := 0.5*(g.score(sc.gl, sc.hl)+g.score(gr, hr)-g.score(st.g, st.h)) - g.gb.Gamma
						if gain > best[k].gain {
							best[k] = candidate{feature: f, threshold: sc.last + (v-sc.last)/2, gain: gain, gl: sc.gl, hl: sc.hl}
						}
					}
				}
				sc.gl += g.grad[i]
				sc.hl += g.hess[i]
				sc.last = v
				sc.seen = true
			}
		}

		var next []int
		for k, nd := range open {
			c := best[k]
			if c.feature < 0 || c.gain <= 0 {
				continue
			}
			st := stats[nd]
			left := nodeStats{g: c.gl, h: c.hl}
			right := nodeStats{g: st.g - c.gl, h: st.h - c.hl}
			l := len(t.Nodes)
			t.Nodes = append(t.Nodes,
				BoostNode{Feature: -1, Left: -1, Right: -1, Weight: g.weight(left)},
				BoostNode{Feature: -1, Left: -1, Right: -1, Weight: g.weight(right)})
			stats = append(stats, left, right)
			t.Nodes[nd].Feature = c.feature
			t.Nodes[nd].Threshold = c.threshold
			t.Nodes[nd].Left = l
			t.Nodes[nd].Right = l + 1
			t.Nodes[nd].Gain = c.gain
			g.gb.GainSum[c.feature] += c.gain
			g.gb.GainCount[c.feature]++
			next = append(next, l, l+1)
		}
		if len(next) == 0 {
			break
		}
		for i, nd := range g.where {
			n := &t.Nodes[nd]
			if n.Left < 0 {
				continue
			}
			if g.x.At(i, n.Feature) <= n.Threshold {
				g.where[i] = n.Left
			} else {
				g.where[i] = n.Right
			}
		}
		open = next
	}
	return t
}

// DecisionFunction returns the raw margin per row.
func (gb *GradientBoostingClassifier) DecisionFunction(X mat.Matrix) (_ []float64, err error) {
	defer lrErrors.Recover(&err, "GradientBoostingClassifier.DecisionFunction")
	if err := model.CheckPredict("DecisionFunction", "GradientBoostingClassifier", gb, gb.NFeatures, X); err != nil {
		return nil, err
	}
	n, c := X.Dims()
	out := make([]float64, n)
	row := make([]float64, c)
	base := gb.baseMargin()
	for i := range out {
		mat.Row(row, i, X)
		m := base
		for k := range gb.Trees {
			m += gb.LearningRate * gb.Trees[k].predict(row)
		}
		out[i] = m
	}
	return out, nil
}

// PredictProba returns an n x 2 matrix of class probabilities.
func (gb *GradientBoostingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	margin, err := gb.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	proba := mat.NewDense(len(margin), 2, nil)
	for i, m := range margin {
		p := sigmoid(m)
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}
	return proba, nil
}

// Predict returns the most probable class per row.
func (gb *GradientBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := gb.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return model.ProbaToLabels(proba, gb.Classes), nil
}

// Score returns the mean accuracy on X and y.
func (gb *GradientBoostingClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := gb.Predict(X)
	if err != nil {
		return 0, err
	}
	return model.Score(pred, y), nil
}

// FeatureImportances returns the mean split gain per feature, normalised
// to sum to one. Features never used for a split score zero.
func (gb *GradientBoostingClassifier) FeatureImportances() ([]float64, error) {
	if !gb.IsFitted() {
		return nil, lrErrors.NewNotFittedError("GradientBoostingClassifier", "FeatureImportances")
	}
	out := make([]float64, len(gb.GainSum))
	var total float64
	for j, s := range gb.GainSum {
		if gb.GainCount[j] > 0 {
			out[j] = s / float64(gb.GainCount[j])
			total += out[j]
		}
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out, nil
}
