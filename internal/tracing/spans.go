package tracing

// Span attribute keys used across the load and export paths.
const (
	AttrFilePath    = "file.path"
	AttrFileVersion = "file.version"
	AttrLoadID      = "load.id"

	AttrSignalsAnalog  = "signals.analog"
	AttrSignalsDigital = "signals.digital"
	AttrSignalsText    = "signals.text"

	AttrSearchPattern = "search.pattern"
	AttrSearchHits    = "search.hits"

	AttrExportFormat      = "export.format"
	AttrExportDestination = "export.destination"
	AttrExportExpressions = "export.expressions"

	AttrErrorMessage = "error.message"
)

// Span names for the traced operations.
const (
	SpanLoad    = "catalog.load"
	SpanSearch  = "catalog.search"
	SpanExport  = "catalog.export"
	SpanHistory = "history.record"
)

// Event names for span events. Load milestones become events on the
// load span.
const (
	EventMilestone       = "load.milestone"
	EventCatalogReplaced = "catalog.replaced"
	EventStaleDiscarded  = "load.stale_discarded"
)
