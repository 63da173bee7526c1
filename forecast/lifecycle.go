package forecast

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"app/models"
	"app/store"
)

// Service owns the model lifecycle: training, activation, loading and
// prediction. Artifacts live as JSON files under dir; the store keeps the
// catalog of trained models and the single-active-model invariant.
type Service struct {
	st  store.Store
	dir string
	now func() time.Time
}

// NewService builds a forecast service writing artifacts under dir.
func NewService(st store.Store, dir string) *Service {
	return &Service{st: st, dir: dir, now: time.Now}
}

// artifact is the on-disk model format. Everything needed to predict is in
// the file; the database row only points at it.
type artifact struct {
	Version        string             `json:"version"`
	TrainedAt      time.Time          `json:"trained_at"`
	FeatureColumns []string           `json:"feature_columns"`
	Params         models.TrainParams `json:"params"`
	Forest         *Forest            `json:"forest"`
}

// Predictor is a loaded active model ready to score feature rows.
type Predictor struct {
	Model  *models.ForecastModel
	forest *Forest
}

// Train fits a new model on the historical grid and atomically makes it the
// active one. Zero-valued params fall back to the defaults.
func (s *Service) Train(ctx context.Context, params models.TrainParams) (*models.ForecastModel, *models.TrainingInfo, error) {
	defaults := models.DefaultTrainParams()
	if params.MonthsBack <= 0 {
		params.MonthsBack = defaults.MonthsBack
	}
	if params.NEstimators <= 0 {
		params.NEstimators = defaults.NEstimators
	}
	if params.MaxDepth <= 0 {
		params.MaxDepth = defaults.MaxDepth
	}
	if params.TestSize <= 0 || params.TestSize >= 1 {
		params.TestSize = defaults.TestSize
	}
	if params.RandomState == 0 {
		params.RandomState = defaults.RandomState
	}

	trainedAt := s.now()
	fs, err := BuildTrainingSet(ctx, s.st, params.MonthsBack, trainedAt, params.RandomState)
	if err != nil {
		return nil, nil, err
	}
	if len(fs.X) == 0 {
		return nil, nil, fmt.Errorf("no hay datos de entrenamiento en la ventana solicitada")
	}

	rng := rand.New(rand.NewSource(params.RandomState))
	trainIdx, testIdx := splitIndices(len(fs.X), params.TestSize, rng)

	trainX, trainY := subset(fs.X, fs.Y, trainIdx)
	forest := TrainForest(trainX, trainY, params.NEstimators, params.MaxDepth, rng)

	trainMetrics := evaluate(forest, trainX, trainY)
	testMetrics := trainMetrics
	if len(testIdx) > 0 {
		testX, testY := subset(fs.X, fs.Y, testIdx)
		testMetrics = evaluate(forest, testX, testY)
	}

	importance := make(map[string]float64, len(fs.Columns))
	for i, col := range fs.Columns {
		if i < len(forest.Importances) {
			importance[col] = forest.Importances[i]
		}
	}

	version := "v" + trainedAt.Format("20060102150405")
	art := artifact{
		Version:        version,
		TrainedAt:      trainedAt,
		FeatureColumns: fs.Columns,
		Params:         params,
		Forest:         forest,
	}
	path, err := s.writeArtifact(&art)
	if err != nil {
		return nil, nil, err
	}

	model := &models.ForecastModel{
		ID:              uuid.NewString(),
		Version:         version,
		TrainedAt:       trainedAt,
		FeatureColumns:  fs.Columns,
		Params:          params,
		Metrics:         testMetrics,
		TrainingSamples: len(trainIdx),
		ArtifactPath:    path,
		Active:          true,
	}
	if err := s.st.InsertModelAndActivate(ctx, model); err != nil {
		return nil, nil, err
	}
	log.Printf("[FORECAST] trained model %s: %d samples, test r2=%.4f", version, len(trainIdx), testMetrics.R2)

	info := &models.TrainingInfo{
		NumSamples:        len(fs.X),
		TrainMetrics:      trainMetrics,
		TestMetrics:       testMetrics,
		FeatureImportance: importance,
		SyntheticSamples:  fs.Synthetic,
	}
	return model, info, nil
}

// Retrain trains with the default hyperparameters.
func (s *Service) Retrain(ctx context.Context) (*models.ForecastModel, *models.TrainingInfo, error) {
	return s.Train(ctx, models.DefaultTrainParams())
}

// Load reads the active model's artifact from disk.
func (s *Service) Load(ctx context.Context) (*Predictor, error) {
	model, err := s.st.ActiveModel(ctx)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(model.ArtifactPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.ErrModelArtifactMissing
		}
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}
	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}
	if art.Forest == nil {
		return nil, models.ErrModelArtifactMissing
	}
	return &Predictor{Model: model, forest: art.Forest}, nil
}

// writeArtifact persists the artifact content-addressed by its sha256, so
// re-writing identical content is idempotent.
func (s *Service) writeArtifact(art *artifact) (string, error) {
	data, err := json.Marshal(art)
	if err != nil {
		return "", fmt.Errorf("failed to encode model artifact: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model dir: %w", err)
	}
	sum := sha256.Sum256(data)
	path := filepath.Join(s.dir, fmt.Sprintf("model_%x.json", sum[:8]))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write model artifact: %w", err)
	}
	return path, nil
}

// splitIndices shuffles [0, n) and carves off a test fraction.
func splitIndices(n int, testSize float64, rng *rand.Rand) (train, test []int) {
	perm := rng.Perm(n)
	nTest := int(math.Round(float64(n) * testSize))
	if nTest >= n {
		nTest = n - 1
	}
	return perm[nTest:], perm[:nTest]
}

func subset(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	sx := make([][]float64, len(idx))
	sy := make([]float64, len(idx))
	for i, j := range idx {
		sx[i] = x[j]
		sy[i] = y[j]
	}
	return sx, sy
}

// evaluate computes regression metrics of the forest on a labelled set.
func evaluate(f *Forest, x [][]float64, y []float64) models.ModelMetrics {
	if len(y) == 0 {
		return models.ModelMetrics{}
	}
	preds := make([]float64, len(y))
	for i, row := range x {
		preds[i] = f.Predict(row)
	}

	var absSum, sqSum float64
	for i := range y {
		d := preds[i] - y[i]
		absSum += math.Abs(d)
		sqSum += d * d
	}
	n := float64(len(y))
	mae := absSum / n
	mse := sqSum / n

	mean := stat.Mean(y, nil)
	ssTot := 0.0
	for _, v := range y {
		d := v - mean
		ssTot += d * d
	}
	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - sqSum/ssTot
	}
	return models.ModelMetrics{
		MAE:  mae,
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		R2:   r2,
	}
}
