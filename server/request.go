package server

import (
	"encoding/json"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/YuminosukeSato/cropyield/dataset"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
)

var (
	soilTypes         = []string{"Loam", "Sandy", "Clay", "Silt", "Peaty", "Chalky"}
	crops             = []string{"Maize", "Rice", "Barley", "Wheat", "Cotton", "Soybean"}
	weatherConditions = []string{"Sunny", "Cloudy", "Rainy", "Stormy", "Humid", "Dry"}
	yesNo             = []string{"Yes", "No"}
)

// CropRequest is the body of POST /predict. Pointer fields distinguish a
// missing field from a zero value.
type CropRequest struct {
	Region             *string  `json:"Region"`
	SoilType           *string  `json:"Soil_Type"`
	Crop               *string  `json:"Crop"`
	RainfallMM         *float64 `json:"Rainfall_mm"`
	TemperatureCelsius *float64 `json:"Temperature_Celsius"`
	FertilizerUsed     *string  `json:"Fertilizer_Used"`
	IrrigationUsed     *string  `json:"Irrigation_Used"`
	WeatherCondition   *string  `json:"Weather_Condition"`
	DaysToHarvest      *int     `json:"Days_to_Harvest"`
}

// PredictResponse is the body of a successful prediction.
type PredictResponse struct {
	PredictedYield float64 `json:"predicted_yield"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// decodeRequest parses and validates a request body. The returned error is
// a ValidationError whose message only names the offending request field.
func decodeRequest(body io.Reader) (*CropRequest, error) {
	var req CropRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, errors.NewValidationError(typeErr.Field, "has the wrong type", nil)
		}
		return nil, errors.NewValidationError("body", "must be a JSON object", nil)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate checks presence, enumerations and ranges.
func (r *CropRequest) Validate() error {
	if r.Region == nil || strings.TrimSpace(*r.Region) == "" {
		return errors.NewValidationError("Region", "is required", nil)
	}
	if err := oneOf("Soil_Type", r.SoilType, soilTypes); err != nil {
		return err
	}
	if err := oneOf("Crop", r.Crop, crops); err != nil {
		return err
	}
	if r.RainfallMM == nil {
		return errors.NewValidationError("Rainfall_mm", "is required", nil)
	}
	if *r.RainfallMM < 0 || math.IsNaN(*r.RainfallMM) {
		return errors.NewValidationError("Rainfall_mm", "must be greater than or equal to 0", *r.RainfallMM)
	}
	if r.TemperatureCelsius == nil {
		return errors.NewValidationError("Temperature_Celsius", "is required", nil)
	}
	if err := oneOf("Fertilizer_Used", r.FertilizerUsed, yesNo); err != nil {
		return err
	}
	if err := oneOf("Irrigation_Used", r.IrrigationUsed, yesNo); err != nil {
		return err
	}
	if err := oneOf("Weather_Condition", r.WeatherCondition, weatherConditions); err != nil {
		return err
	}
	if r.DaysToHarvest == nil {
		return errors.NewValidationError("Days_to_Harvest", "is required", nil)
	}
	if *r.DaysToHarvest < 1 {
		return errors.NewValidationError("Days_to_Harvest", "must be greater than or equal to 1", *r.DaysToHarvest)
	}
	return nil
}

func oneOf(field string, v *string, allowed []string) error {
	if v == nil {
		return errors.NewValidationError(field, "is required", nil)
	}
	if !slices.Contains(allowed, *v) {
		return errors.NewValidationError(field, "must be one of "+strings.Join(allowed, ", "), *v)
	}
	return nil
}

// Record converts a validated request to the raw record the pipeline
// expects. Flags stay "Yes"/"No"; the feature engineer maps them.
func (r *CropRequest) Record() dataset.Record {
	return dataset.Record{
		"Region":              *r.Region,
		"Soil_Type":           *r.SoilType,
		"Crop":                *r.Crop,
		"Rainfall_mm":         *r.RainfallMM,
		"Temperature_Celsius": *r.TemperatureCelsius,
		"Fertilizer_Used":     *r.FertilizerUsed,
		"Irrigation_Used":     *r.IrrigationUsed,
		"Weather_Condition":   *r.WeatherCondition,
		"Days_to_Harvest":     float64(*r.DaysToHarvest),
	}
}
