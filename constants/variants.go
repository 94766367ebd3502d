package constants

import "strings"

// Cracker variants.
const (
	CrackerLayout = "layout"
	CrackerTika   = "tika"
	CrackerLocal  = "local"
)

// Extractor variants.
const (
	ExtractorOpenAI = "openai"
	ExtractorGroq   = "groq"
	ExtractorOllama = "ollama"
	ExtractorVertex = "vertex"
)

// Sink variants.
const (
	SinkCSV       = "csv"
	SinkJSONL     = "jsonl"
	SinkEventGrid = "eventgrid"
	SinkPusher    = "pusher"
	SinkRedis     = "redis"
	SinkXLSX      = "xlsx"
	SinkSQL       = "sql"
)

// Template store variants.
const (
	StoreInvoke    = "invoke"
	StoreState     = "state"
	StoreRedis     = "redis"
	StoreFirestore = "firestore"
)

// Document source variants.
const (
	SourceFile = "file"
	SourceGCS  = "gcs"
)

// Outbound event identity.
const (
	EventTypeInvoiceProcessed = "Invoice.Processed"
	EventSource               = "process"
	EventDataVersion          = "1.0"
	RealtimeEventName         = "invoice-processed"
)

// StaticInvoiceTemplate is the reserved name of the built-in invoice template.
const StaticInvoiceTemplate = "static_invoice"

// names accepted for compatibility with existing deployments
var variantAliases = map[string]string{
	"document_intelligence": CrackerLayout,
	"docint":                CrackerLayout,
	"event_grid":            SinkEventGrid,
	"json":                  SinkJSONL,
	"excel":                 SinkXLSX,
	"azure_openai":          ExtractorOpenAI,
	"gemini":                ExtractorVertex,
	"dapr":                  StoreInvoke,
}

// CanonicalVariant lowercases a variant name and resolves known aliases.
func CanonicalVariant(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := variantAliases[n]; ok {
		return alias
	}
	return n
}
