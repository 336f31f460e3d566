package domain

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/*.json
var schemaFS embed.FS

const (
	ledgerSchemaURL  = "schema://ledger.json"
	catalogSchemaURL = "schema://catalog.json"
)

var (
	schemaOnce    sync.Once
	ledgerSchema  *jsonschema.Schema
	catalogSchema *jsonschema.Schema
	schemaErr     error
)

// CatalogVersion is stamped on catalog documents written by this service.
const CatalogVersion = "1.0"

// CatalogDocument is the serialized form of the shared catalog.
type CatalogDocument struct {
	Modules     []Module   `json:"modules"`
	Questions   []Question `json:"questions"`
	Version     string     `json:"version"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

// EncodeLedger serializes a ledger for the document store.
func EncodeLedger(l Ledger) ([]byte, error) {
	if l.QuestionHistory == nil {
		l.QuestionHistory = map[string]QuestionRecord{}
	}
	if l.CompletedModules == nil {
		l.CompletedModules = []string{}
	}
	return json.Marshal(l)
}

// DecodeLedger validates a stored ledger document and returns it with the level recomputed from XP.
func DecodeLedger(raw []byte) (Ledger, error) {
	if err := validate(raw, func() *jsonschema.Schema { return ledgerSchema }); err != nil {
		return Ledger{}, err
	}
	var l Ledger
	if err := json.Unmarshal(raw, &l); err != nil {
		return Ledger{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if l.QuestionHistory == nil {
		l.QuestionHistory = map[string]QuestionRecord{}
	}
	if l.CompletedModules == nil {
		l.CompletedModules = []string{}
	}
	l.Level = LevelForXP(l.XP)
	return l, nil
}

// EncodeCatalog serializes the catalog as a versioned document.
func EncodeCatalog(c Catalog, now time.Time) ([]byte, error) {
	return json.Marshal(CatalogDocument{
		Modules:     c.Modules(),
		Questions:   c.Questions(),
		Version:     CatalogVersion,
		LastUpdated: now.UTC(),
	})
}

// DecodeCatalog validates a stored catalog document and rebuilds the catalog from it.
func DecodeCatalog(raw []byte) (Catalog, error) {
	if err := validate(raw, func() *jsonschema.Schema { return catalogSchema }); err != nil {
		return Catalog{}, err
	}
	var doc CatalogDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return NewCatalog(doc.Modules, doc.Questions)
}

func validate(raw []byte, pick func() *jsonschema.Schema) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := pick().Validate(parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

func compileSchemas() {
	c := jsonschema.NewCompiler()
	for url, file := range map[string]string{
		ledgerSchemaURL:  "schema/ledger.schema.json",
		catalogSchemaURL: "schema/catalog.schema.json",
	} {
		data, err := schemaFS.ReadFile(file)
		if err != nil {
			schemaErr = fmt.Errorf("read schema %s: %w", file, err)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			schemaErr = fmt.Errorf("parse schema %s: %w", file, err)
			return
		}
		if err := c.AddResource(url, doc); err != nil {
			schemaErr = fmt.Errorf("add schema %s: %w", file, err)
			return
		}
	}
	if ledgerSchema, schemaErr = c.Compile(ledgerSchemaURL); schemaErr != nil {
		return
	}
	catalogSchema, schemaErr = c.Compile(catalogSchemaURL)
}

// LedgerKey is the document path of a user's ledger.
func LedgerKey(appID, userID string) string {
	return "artifacts/" + appID + "/users/" + userID + "/userData"
}

// CatalogKey is the document path of the shared catalog.
func CatalogKey(appID string) string {
	return "artifacts/" + appID + "/public/data/certiFlashContent"
}
