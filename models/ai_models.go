package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrNoActiveModel is returned when forecasting is requested but no model
// has been trained and activated. The message is user-facing.
var ErrNoActiveModel = errors.New("No hay ningún modelo activo. Por favor, entrena un modelo primero.")

// ErrModelArtifactMissing is returned when the active model's artifact file
// cannot be read.
var ErrModelArtifactMissing = errors.New("el artefacto del modelo activo no existe")

// ErrPredictionNotFound is returned when a prediction id matches nothing.
var ErrPredictionNotFound = errors.New("predicción no encontrada")

// FeatureShapeError signals that a prediction-time feature row does not
// match the column order persisted with the model artifact.
type FeatureShapeError struct {
	Column string
}

func (e *FeatureShapeError) Error() string {
	return fmt.Sprintf("columna de features desconocida para el modelo activo: %q", e.Column)
}

// ModelMetrics are regression metrics on a held-out set.
type ModelMetrics struct {
	MAE  float64 `json:"mae"`
	MSE  float64 `json:"mse"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

// TrainParams are the hyperparameters of one training run.
type TrainParams struct {
	MonthsBack  int     `json:"months_back"`
	NEstimators int     `json:"n_estimators"`
	MaxDepth    int     `json:"max_depth"`
	TestSize    float64 `json:"test_size"`
	RandomState int64   `json:"random_state"`
}

// DefaultTrainParams are the defaults used by retraining.
func DefaultTrainParams() TrainParams {
	return TrainParams{
		MonthsBack:  36,
		NEstimators: 100,
		MaxDepth:    10,
		TestSize:    0.2,
		RandomState: 42,
	}
}

// ForecastModel is a trained, versioned sales-forecasting model. At most one
// model is active at any observable instant; the store enforces it.
type ForecastModel struct {
	ID              string       `json:"id"`
	Version         string       `json:"version"`
	TrainedAt       time.Time    `json:"trainedAt"`
	FeatureColumns  []string     `json:"featureColumns"`
	Params          TrainParams  `json:"hyperparameters"`
	Metrics         ModelMetrics `json:"metrics"`
	TrainingSamples int          `json:"trainingSamples"`
	ArtifactPath    string       `json:"artifactPath"`
	Active          bool         `json:"active"`
}

// TrainingInfo is the per-run detail returned alongside a new model.
type TrainingInfo struct {
	NumSamples        int                `json:"num_samples"`
	TrainMetrics      ModelMetrics       `json:"train_metrics"`
	TestMetrics       ModelMetrics       `json:"test_metrics"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	SyntheticSamples  int                `json:"synthetic_samples"`
}

// Prediction is one persisted forecast for a (period, category) bucket.
// ActualQuantity and AbsError are filled later, when ground truth exists.
type Prediction struct {
	ID           string             `json:"id"`
	ModelID      string             `json:"modelId"`
	PeriodLabel  string             `json:"period"`
	Category     string             `json:"category"`
	Predicted    float64            `json:"predicted"`
	FeatureInput map[string]float64 `json:"featureInput"`
	ActualQty    *float64           `json:"actual,omitempty"`
	AbsError     *float64           `json:"error,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// Confidence levels derived from the active model's r² score.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// ConfidenceFromR2 maps r² to a confidence label (thresholds 0.8 / 0.6).
func ConfidenceFromR2(r2 float64) string {
	switch {
	case r2 >= 0.8:
		return ConfidenceHigh
	case r2 >= 0.6:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ForecastResult is the API shape of one emitted prediction.
type ForecastResult struct {
	PredictionID string  `json:"prediction_id"`
	Period       string  `json:"period"`
	Category     string  `json:"categoria"`
	Predicted    float64 `json:"predicted"`
	Confidence   string  `json:"confidence"`
}

// JwtClaims are the token claims issued by the (external) auth subsystem.
// Reporting only consumes the identity fields for report headers.
type JwtClaims struct {
	UserID       string `json:"userId"`
	Role         string `json:"role"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Organization string `json:"organization"`
	jwt.RegisteredClaims
}
