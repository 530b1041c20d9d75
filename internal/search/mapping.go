package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for contact documents.
//
// Text fields get English stemming so "running club" matches notes that say
// "runs a club". Phone numbers use the standard analyzer because the English
// analyzer's letter tokenizer would drop the digits entirely. Identity fields
// use the keyword analyzer for exact term filtering.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Name is the primary search target and gets boosted at query time.
	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	// Phone - standard analyzer keeps digit runs as tokens
	phoneFieldMapping := bleve.NewTextFieldMapping()
	phoneFieldMapping.Analyzer = standard.Name
	phoneFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("phone", phoneFieldMapping)

	addressFieldMapping := bleve.NewTextFieldMapping()
	addressFieldMapping.Analyzer = en.AnalyzerName
	addressFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("address", addressFieldMapping)

	notesFieldMapping := bleve.NewTextFieldMapping()
	notesFieldMapping.Analyzer = en.AnalyzerName
	notesFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("notes", notesFieldMapping)

	// --- Keyword fields (exact match) ---

	// Owner - every query is filtered on this term
	ownerFieldMapping := bleve.NewTextFieldMapping()
	ownerFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("owner", ownerFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
