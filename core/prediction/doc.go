// Package prediction provides the demand forecasting contract used to steer
// idle vehicles. Forecasts are optional: repositioning is disabled when no
// predictor is configured.
package prediction
