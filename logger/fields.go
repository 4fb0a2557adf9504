package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging.
// Use these constants instead of raw strings.
const (
	// Conversation identity
	FieldOwner = "owner"
	FieldAsset = "asset"
	FieldName  = "name"

	// Graph positions
	FieldNodeID    = "node_id"
	FieldFromNode  = "from_node"
	FieldToNode    = "to_node"
	FieldStartNode = "start_node"

	// Runner
	FieldState       = "state"
	FieldAction      = "action"
	FieldChoiceIndex = "choice_index"
	FieldNormalExit  = "normal_exit"

	// Components
	FieldComponent = "component"

	// Timing
	FieldDurationMS = "duration_ms"
	FieldDelta      = "delta"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount     = "count"
	FieldNodeCount = "node_count"
	FieldEdgeCount = "edge_count"

	// Storage
	FieldPath   = "path"
	FieldDriver = "driver"
)

// Context keys for propagating logging context
type contextKey string

const (
	ownerKey     contextKey = "logger_owner"
	componentKey contextKey = "logger_component"
)

// WithOwner adds a conversation owner to the context for logging
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if owner, ok := ctx.Value(ownerKey).(string); ok && owner != "" {
		fields = append(fields, FieldOwner, owner)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	d := driver.New(store, driver.WithLogger(logger.ComponentLogger("driver")))
func ComponentLogger(component string) *zap.SugaredLogger {
	return Logger.Named(component)
}
