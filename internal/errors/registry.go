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
	// ============================================
	// Decode Errors (R000-R019)
	// ============================================

	"R000": {
		Category: CategoryDecode,
		Message:  "Decode failed",
		Detail:   "The action stream could not be decoded.",
	},
	"R001": {
		Category:   CategoryDecode,
		Message:    "Recording is truncated",
		Detail:     "The input ended in the middle of a record.",
		Suggestion: "Check that the file was copied completely, or decode the body section only.",
	},
	"R002": {
		Category:   CategoryDecode,
		Message:    "Unsupported command",
		Detail:     "A command frame carries an opcode this decoder does not model.",
		Suggestion: "Pass --skip-unsupported to keep such frames as raw bytes.",
	},
	"R003": {
		Category: CategoryDecode,
		Message:  "Unsupported game sub-command",
		Detail:   "A Game command carries a sub-command this decoder does not model.",
	},
	"R004": {
		Category:   CategoryDecode,
		Message:    "Unknown action type",
		Detail:     "The stream is out of sync, or the input is not an action stream.",
		Suggestion: "Use --meta mgx or --meta mgl if the file starts with body metadata.",
	},
	"R005": {
		Category: CategoryDecode,
		Message:  "Guard value mismatch",
		Detail:   "A field that is fixed for this record holds a different value.",
	},
	"R006": {
		Category: CategoryDecode,
		Message:  "Value out of range",
		Detail:   "A field holds a value outside the range of its type.",
	},
	"R007": {
		Category:   CategoryDecode,
		Message:    "Frame too large",
		Detail:     "A frame declares a length above the configured limit.",
		Suggestion: "Raise decode.maxFrameLength in mgxrec.json if the recording is known to be valid.",
	},
	"R008": {
		Category: CategoryDecode,
		Message:  "Read failed",
		Detail:   "The underlying reader returned an error.",
	},

	// ============================================
	// Verify Errors (R020-R039)
	// ============================================

	"R020": {
		Category: CategoryVerify,
		Message:  "Round trip mismatch",
		Detail:   "Re-encoding a decoded action did not reproduce the input bytes.",
	},
	"R021": {
		Category:   CategoryVerify,
		Message:    "Selection cannot be resolved",
		Detail:     "A command reuses the previous selection, but no command has selected objects yet.",
		Suggestion: "The stream probably starts mid-game. Pass --allow-unresolved to continue.",
	},

	// ============================================
	// Config Errors (C120-C139)
	// ============================================

	"C120": {
		Category:   CategoryConfig,
		Message:    "Config not found",
		Detail:     "No mgxrec.json was found in the directory.",
		Suggestion: "Create one with `mgxrec config init`, or run without a config file.",
	},
	"C121": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "mgxrec.json is not valid JSON.",
	},
	"C122": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A value in mgxrec.json is outside its allowed range.",
	},
	"C123": {
		Category: CategoryConfig,
		Message:  "Config write failed",
		Detail:   "mgxrec.json could not be written.",
	},

	// ============================================
	// Storage Errors (S200-S219)
	// ============================================

	"S200": {
		Category:   CategoryStorage,
		Message:    "Unknown storage backend",
		Detail:     "storage.backend must be \"disk\" or \"s3\".",
		Suggestion: "Set storage.backend in mgxrec.json.",
	},
	"S201": {
		Category: CategoryStorage,
		Message:  "Recording not found",
		Detail:   "No recording is stored under this ID.",
	},
	"S202": {
		Category: CategoryStorage,
		Message:  "Recording too large",
		Detail:   "The recording exceeds server.maxUploadSize.",
	},
	"S203": {
		Category: CategoryStorage,
		Message:  "Storage failure",
		Detail:   "The storage backend returned an error.",
	},

	// ============================================
	// Server Errors (S220-S239)
	// ============================================

	"S220": {
		Category:   CategoryServer,
		Message:    "Listen failed",
		Detail:     "The server could not bind its address.",
		Suggestion: "Pick another port with --addr or server.address.",
	},
	"S221": {
		Category: CategoryServer,
		Message:  "Shutdown failed",
		Detail:   "The server did not stop cleanly before the timeout.",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
		Detail:   "A command-line flag has a value that is not accepted.",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Input not readable",
		Detail:   "The recording could not be opened.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
