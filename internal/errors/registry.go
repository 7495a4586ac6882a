package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Exchange and region errors (E001-E009)
	"E001": {
		Category:   CategoryExchange,
		Message:    "Response has no tx-state element",
		Detail:     "Every exchange response must carry a <script id=\"tx-state\"> element holding a JSON object, even when the object is empty.",
		Suggestion: "Render the state script after the region, e.g. with wire.WriteRegion",
	},
	"E002": {
		Category: CategoryExchange,
		Message:  "Invalid tx-state payload",
		Detail:   "The tx-state element must contain a single JSON object mapping region names to their state.",
	},
	"E003": {
		Category:   CategoryRegion,
		Message:    "Region markers not found",
		Detail:     "The target region needs a <!--tx:NAME--> comment followed later by <!--tx:NAME_e-->. A response that does not re-emit its markers cannot be patched again.",
		Suggestion: "Wrap the region body with wire.Region so the markers are always written",
	},

	// Transport errors (E010-E019)
	"E010": {
		Category:   CategoryTransport,
		Message:    "Exchange request failed",
		Detail:     "The handler could not be reached. HTTP error statuses are not transport failures; their bodies are processed like any response.",
		Suggestion: "Check that the server is running and that handlerPrefix matches its routes",
	},
	"E011": {
		Category: CategoryTransport,
		Message:  "Page load failed",
	},

	// Configuration errors (E020-E029)
	"E020": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},
	"E021": {
		Category:   CategoryConfig,
		Message:    "Configuration file not readable",
		Suggestion: "Check the path and the file syntax (tx.json or tx.toml)",
	},

	// CLI errors (E030-E039)
	"E030": {
		Category:   CategoryCLI,
		Message:    "Invalid step",
		Detail:     "Steps have the form click:SELECTOR, input:SELECTOR=VALUE or fire:SELECTOR=EVENT.",
		Suggestion: "tx run http://localhost:8080/ --step input:#item=milk --step click:#add",
	},
	"E031": {
		Category: CategoryCLI,
		Message:  "Exchanges did not settle",
		Detail:   "Queued exchanges were still running when the wait timed out.",
	},

	// Snapshot errors (E040-E049)
	"E040": {
		Category: CategorySnapshot,
		Message:  "Snapshot not found",
	},
	"E041": {
		Category:   CategorySnapshot,
		Message:    "Snapshot store unavailable",
		Suggestion: "Check snapshot.store and its address or bucket settings",
	},
}

// Lookup returns the template for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
