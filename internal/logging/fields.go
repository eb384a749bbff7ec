package logging

// Standardized attribute keys shared across components.
const (
	// FieldComponent identifies the subsystem emitting a record. The
	// console handler renders it as a message prefix.
	FieldComponent = "component"

	// FieldEventType is a stable machine-readable event identifier.
	FieldEventType = "event_type"

	// FieldDatasetID identifies the dataset a record concerns.
	FieldDatasetID = "dataset_id"

	// FieldRunID identifies the sync run a record belongs to.
	FieldRunID = "run_id"
)
