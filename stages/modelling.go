package stages

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/kari1998/loan-default-prediction/core/model"
	"github.com/kari1998/loan-default-prediction/frame"
	"github.com/kari1998/loan-default-prediction/metrics"
	"github.com/kari1998/loan-default-prediction/modelselection"
	"github.com/kari1998/loan-default-prediction/pkg/config"
	lrErrors "github.com/kari1998/loan-default-prediction/pkg/errors"
	"github.com/kari1998/loan-default-prediction/pkg/log"
	"github.com/kari1998/loan-default-prediction/preprocessing"
	"github.com/kari1998/loan-default-prediction/sklearn/ensemble"
	"github.com/kari1998/loan-default-prediction/sklearn/linear_model"
	"github.com/kari1998/loan-default-prediction/sklearn/neural_network"
	"github.com/kari1998/loan-default-prediction/sklearn/pipeline"
	"github.com/kari1998/loan-default-prediction/store"
	"github.com/kari1998/loan-default-prediction/viz"
)

// Model keys used for file names.
const (
	KeyLogisticRegression = "logistic_regression"
	KeyRandomForest       = "random_forest"
	KeyXGBoost            = "xgboost"
	KeyNeuralNetwork      = "neural_network"
)

const classifierStep = "classifier"

// NamedClassifier is a classifier that reports its display name.
type NamedClassifier interface {
	model.Classifier
	model.Named
}

// modelSpec builds a fresh classifier for training and an empty value to
// decode a saved one into.
type modelSpec struct {
	key   string
	build func(cfg *config.Config) NamedClassifier
	empty func() NamedClassifier
}

func scaled(clf model.Classifier) *pipeline.Pipeline {
	return pipeline.New(
		pipeline.Step{Name: "scaler", Estimator: preprocessing.NewStandardScalerDefault()},
		pipeline.Step{Name: classifierStep, Estimator: clf},
	)
}

// modelSpecs lists the classifiers in report order. Logistic regression and
// the network train on standardised features; the tree ensembles on raw ones.
var modelSpecs = []modelSpec{
	{
		key: KeyLogisticRegression,
		build: func(cfg *config.Config) NamedClassifier {
			return scaled(linear_model.NewLogisticRegression(
				linear_model.WithLRC(cfg.Models.LogisticC),
				linear_model.WithLRMaxIter(cfg.Models.LogisticIter)))
		},
		empty: func() NamedClassifier { return &pipeline.Pipeline{} },
	},
	{
		key: KeyRandomForest,
		build: func(cfg *config.Config) NamedClassifier {
			return ensemble.NewRandomForestClassifier(
				ensemble.WithNEstimators(cfg.Models.ForestTrees),
				ensemble.WithRFRandomState(cfg.Seed))
		},
		empty: func() NamedClassifier { return &ensemble.RandomForestClassifier{} },
	},
	{
		key: KeyXGBoost,
		build: func(cfg *config.Config) NamedClassifier {
			return ensemble.NewGradientBoostingClassifier(
				ensemble.WithGBNEstimators(cfg.Models.BoostRounds),
				ensemble.WithLearningRate(cfg.Models.BoostEta),
				ensemble.WithGBMaxDepth(cfg.Models.BoostDepth))
		},
		empty: func() NamedClassifier { return &ensemble.GradientBoostingClassifier{} },
	},
	{
		key: KeyNeuralNetwork,
		build: func(cfg *config.Config) NamedClassifier {
			return scaled(neural_network.NewMLPClassifier(
				neural_network.WithHiddenLayers(cfg.Models.MLPHidden...),
				neural_network.WithEpochs(cfg.Models.MLPEpochs),
				neural_network.WithBatchSize(cfg.Models.MLPBatchSize),
				neural_network.WithMLPLearningRate(cfg.Models.MLPLearnRate),
				neural_network.WithMaxGradNorm(cfg.Models.MLPClipNorm),
				neural_network.WithMLPRandomState(cfg.Seed)))
		},
		empty: func() NamedClassifier { return &pipeline.Pipeline{} },
	},
}

func loadModel(cfg *config.Config, spec modelSpec) (NamedClassifier, error) {
	m := spec.empty()
	path := cfg.ModelPath(spec.key)
	if err := model.LoadModel(m, path); err != nil {
		return nil, lrErrors.Wrapf(err, "load %s", path)
	}
	return m, nil
}

func readBalanced(cfg *config.Config) (X, y *mat.Dense, features []string, err error) {
	f, err := readFrame(cfg.Paths.Balanced)
	if err != nil {
		return nil, nil, nil, err
	}
	return splitTarget(f)
}

func labelNames(labels []float64) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = fmt.Sprintf("%g", l)
	}
	return out
}

// Train fits the four classifiers on a random 80/20 split of the balanced
// data, prints their accuracy and classification report, and saves each
// model with its confusion matrix.
func Train(ctx context.Context, cfg *config.Config, w io.Writer) error {
	X, y, features, err := readBalanced(cfg)
	if err != nil {
		return err
	}
	split, err := modelselection.TrainTestSplit(X, y, modelselection.SplitOptions{
		TestSize: cfg.Split.TestSize,
		Seed:     cfg.Seed,
	})
	if err != nil {
		return err
	}
	yTrue := metrics.Column(split.YTest, 0)

	accuracies := make([]float64, len(modelSpecs))
	names := make([]string, len(modelSpecs))
	for i, spec := range modelSpecs {
		if err := ctx.Err(); err != nil {
			return err
		}
		clf := spec.build(cfg)
		names[i] = clf.Name()
		if err := clf.Fit(split.XTrain, split.YTrain); err != nil {
			return lrErrors.Wrapf(err, "train %s", names[i])
		}
		pred, err := clf.Predict(split.XTest)
		if err != nil {
			return err
		}
		yPred := metrics.Column(pred, 0)
		if accuracies[i], err = metrics.Accuracy(yTrue, yPred); err != nil {
			return err
		}
		report, err := metrics.ClassificationReport(yTrue, yPred)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s Accuracy: %.4f\n%s\n", names[i], accuracies[i], report)

		path := cfg.ModelPath(spec.key)
		if err := model.SaveModel(clf, path); err != nil {
			return lrErrors.Wrapf(err, "save %s", path)
		}
		cm, classes, err := metrics.ConfusionMatrix(yTrue, yPred)
		if err != nil {
			return err
		}
		cmFrame, err := frame.FromMatrix(cm, labelNames(classes))
		if err != nil {
			return err
		}
		if err := writeFrame(cmFrame, filepath.Join(cfg.Paths.Models, spec.key+"_conf_matrix.csv")); err != nil {
			return err
		}
		if err := writeLinearCard(cfg, spec.key, clf, features); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "Model Performance Summary:")
	for i, name := range names {
		fmt.Fprintf(w, "%s: %.4f\n", name, accuracies[i])
	}
	return nil
}

// writeLinearCard exports the coefficients of a linear model, if clf holds
// one, next to the saved model. Coefficients refer to standardised features.
func writeLinearCard(cfg *config.Config, key string, clf NamedClassifier, features []string) error {
	p, ok := clf.(*pipeline.Pipeline)
	if !ok {
		return nil
	}
	step, _ := p.Named(classifierStep)
	lr, ok := step.(*linear_model.LogisticRegression)
	if !ok {
		return nil
	}
	params, err := lr.Params(features)
	if err != nil {
		return err
	}
	path := filepath.Join(cfg.Paths.Models, key+"_card.json")
	if err := model.WriteCardFile(key, params, path); err != nil {
		return lrErrors.Wrapf(err, "write %s", path)
	}
	return nil
}

// Evaluation is the held-out performance of one saved model.
type Evaluation struct {
	Metrics   store.Metrics
	Confusion *mat.Dense
	Labels    []float64
	ROC       *metrics.ROC
}

// EvaluateModel scores clf on X and y. The probability of label 1 drives
// the ROC curve.
func EvaluateModel(clf NamedClassifier, X, y mat.Matrix) (*Evaluation, error) {
	pred, err := clf.Predict(X)
	if err != nil {
		return nil, err
	}
	proba, err := clf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	yTrue, yPred := metrics.Column(y, 0), metrics.Column(pred, 0)
	ev := &Evaluation{Metrics: store.Metrics{Model: clf.Name()}}
	m := &ev.Metrics
	if m.Accuracy, err = metrics.Accuracy(yTrue, yPred); err != nil {
		return nil, err
	}
	if m.Precision, err = metrics.Precision(yTrue, yPred); err != nil {
		return nil, err
	}
	if m.Recall, err = metrics.Recall(yTrue, yPred); err != nil {
		return nil, err
	}
	if m.F1, err = metrics.F1(yTrue, yPred); err != nil {
		return nil, err
	}
	if ev.ROC, err = metrics.ROCCurve(yTrue, metrics.Column(proba, 1)); err != nil {
		return nil, err
	}
	m.AUC = ev.ROC.AUC()
	if ev.Confusion, ev.Labels, err = metrics.ConfusionMatrix(yTrue, yPred); err != nil {
		return nil, err
	}
	return ev, nil
}

// Evaluate scores every saved model on a stratified 80/20 split of the
// balanced data, writes the metrics table and plots, and records the run
// in the history store.
func Evaluate(ctx context.Context, cfg *config.Config, w io.Writer) error {
	X, y, _, err := readBalanced(cfg)
	if err != nil {
		return err
	}
	split, err := modelselection.TrainTestSplit(X, y, modelselection.SplitOptions{
		TestSize: cfg.Split.TestSize,
		Seed:     cfg.Seed,
		Stratify: true,
	})
	if err != nil {
		return err
	}

	evals := make([]*Evaluation, len(modelSpecs))
	for i, spec := range modelSpecs {
		clf, err := loadModel(cfg, spec)
		if err != nil {
			return err
		}
		if evals[i], err = EvaluateModel(clf, split.XTest, split.YTest); err != nil {
			return lrErrors.Wrapf(err, "evaluate %s", spec.key)
		}
	}

	results, err := resultsFrame(evals)
	if err != nil {
		return err
	}
	if err := writeFrame(results, cfg.ResultPath("model_performance.csv")); err != nil {
		return err
	}
	if err := results.Fprint(w, 0); err != nil {
		return err
	}

	row := make([]*plot.Plot, len(evals))
	curves := make([]viz.Curve, len(evals))
	for i, ev := range evals {
		names := labelNames(ev.Labels)
		p, err := viz.Heatmap("Confusion Matrix: "+ev.Metrics.Model, names, names, ev.Confusion,
			viz.HeatmapOptions{Format: "%.0f"})
		if err != nil {
			return err
		}
		p.X.Label.Text = "Predicted Label"
		p.Y.Label.Text = "True Label"
		row[i] = p
		curves[i] = viz.Curve{Name: ev.Metrics.Model, X: ev.ROC.FPR, Y: ev.ROC.TPR}
	}
	wide := vg.Length(len(row)) * 5 * vg.Inch
	if err := viz.SaveGrid(cfg.PlotPath("Modelling", "confusion_matrices.png"), [][]*plot.Plot{row}, wide, 4*vg.Inch); err != nil {
		return err
	}
	roc, err := viz.ROC("ROC Curve Comparison", curves)
	if err != nil {
		return err
	}
	if err := viz.Save(roc, cfg.PlotPath("Modelling", "roc_curve.png"), viz.Width, viz.Height); err != nil {
		return err
	}

	return recordRun(ctx, cfg, w, evals)
}

func resultsFrame(evals []*Evaluation) (*frame.Frame, error) {
	n := len(evals)
	names := make([]string, n)
	cols := make([][]float64, 5)
	for j := range cols {
		cols[j] = make([]float64, n)
	}
	for i, ev := range evals {
		m := ev.Metrics
		names[i] = m.Model
		cols[0][i], cols[1][i], cols[2][i], cols[3][i], cols[4][i] = m.Accuracy, m.Precision, m.Recall, m.F1, m.AUC
	}
	return frame.New(
		frame.NewCategorical("Model", names),
		frame.NewNumeric("Accuracy", cols[0]),
		frame.NewNumeric("Precision", cols[1]),
		frame.NewNumeric("Recall", cols[2]),
		frame.NewNumeric("F1-score", cols[3]),
		frame.NewNumeric("AUC-ROC", cols[4]),
	)
}

func recordRun(ctx context.Context, cfg *config.Config, w io.Writer, evals []*Evaluation) (err error) {
	s, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	rows := make([]store.Metrics, len(evals))
	for i, ev := range evals {
		rows[i] = ev.Metrics
	}
	id, err := s.SaveRun(ctx, rows)
	if err != nil {
		return err
	}
	log.GetLoggerWithName("stages").Info("recorded evaluation run", "run_id", id, log.PathKey, cfg.Store.Path)
	fmt.Fprintf(w, "\nRun %s recorded in %s\n", id, cfg.Store.Path)
	return nil
}

// Ranked is a feature with its importance score.
type Ranked struct {
	Feature    string
	Importance float64
}

// RankFeatures pairs features with scores, highest first. Ties keep the
// feature order.
func RankFeatures(features []string, scores []float64) ([]Ranked, error) {
	if len(features) != len(scores) {
		return nil, lrErrors.NewDimensionError("RankFeatures", len(features), len(scores), 0)
	}
	out := make([]Ranked, len(features))
	for i := range features {
		out[i] = Ranked{Feature: features[i], Importance: scores[i]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out, nil
}

// Importance ranks the balanced data's features by the importances of the
// saved random forest and boosted trees.
func Importance(_ context.Context, cfg *config.Config, w io.Writer) error {
	f, err := readFrame(cfg.Paths.Balanced)
	if err != nil {
		return err
	}
	_, _, features, err := splitTarget(f)
	if err != nil {
		return err
	}

	for _, spec := range modelSpecs {
		if spec.key != KeyRandomForest && spec.key != KeyXGBoost {
			continue
		}
		clf, err := loadModel(cfg, spec)
		if err != nil {
			return err
		}
		imp, ok := clf.(model.FeatureImportancer)
		if !ok {
			return lrErrors.Newf("%s has no feature importances", spec.key)
		}
		scores, err := imp.FeatureImportances()
		if err != nil {
			return err
		}
		ranked, err := RankFeatures(features, scores)
		if err != nil {
			return err
		}
		if err := writeRanking(cfg.ResultPath(spec.key+"_feature_importance.csv"), ranked); err != nil {
			return err
		}

		top := ranked
		if n := cfg.Models.ImportanceTop; n > 0 && n < len(top) {
			top = top[:n]
		}
		names := make([]string, len(top))
		values := make([]float64, len(top))
		fmt.Fprintf(w, "Top %d features (%s):\n", len(top), clf.Name())
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for i, r := range top {
			names[i], values[i] = r.Feature, r.Importance
			fmt.Fprintf(tw, "  %s\t%.4f\n", r.Feature, r.Importance)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fill := steelBlue
		if spec.key == KeyXGBoost {
			fill = lightGreen
		}
		p, err := viz.HorizontalBars(fmt.Sprintf("Top %d Feature Importance (%s)", len(top), clf.Name()),
			"Importance Score", names, values, fill)
		if err != nil {
			return err
		}
		if err := viz.Save(p, cfg.PlotPath("Modelling", spec.key+"_feature_importance.png"), 10*vg.Inch, viz.Height); err != nil {
			return err
		}
	}
	return nil
}

func writeRanking(path string, ranked []Ranked) error {
	names := make([]string, len(ranked))
	scores := make([]float64, len(ranked))
	for i, r := range ranked {
		names[i], scores[i] = r.Feature, r.Importance
	}
	f, err := frame.New(frame.NewCategorical("Feature", names), frame.NewNumeric("Importance", scores))
	if err != nil {
		return err
	}
	return writeFrame(f, path)
}
