// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JourneytoNewland/chatBI-sub000/pkg/registry"
)

var catalogPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	// Add command flags
	idAdd := addCmd.String("id", "", "Subject ID (e.g., subj-gmv)")
	name := addCmd.String("name", "", "Display name users type (e.g., GMV)")
	code := addCmd.String("code", "", "Machine code (lowercase, e.g., gmv)")
	description := addCmd.String("description", "", "Description")
	domain := addCmd.String("domain", "", "Business domain (e.g., sales)")
	factTable := addCmd.String("factTable", "", "Fact table name (e.g., fact_sales)")
	valueColumn := addCmd.String("valueColumn", "", "Value column on the fact table")
	unit := addCmd.String("unit", "", "Unit (e.g., CNY)")
	synonyms := addCmd.String("synonyms", "", "Comma-separated synonyms")
	addCmd.StringVar(&catalogPath, "path", "configs/subjects.json", "Path to subject catalog")

	validateCmd.StringVar(&catalogPath, "path", "configs/subjects.json", "Path to subject catalog")
	listCmd.StringVar(&catalogPath, "path", "configs/subjects.json", "Path to subject catalog")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *name == "" || *code == "" || *factTable == "" || *valueColumn == "" {
			fmt.Println("Error: id, name, code, factTable, and valueColumn are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		subject := registry.Subject{
			ID:          *idAdd,
			Name:        *name,
			Code:        *code,
			Description: *description,
			Domain:      *domain,
			FactTable:   *factTable,
			ValueColumn: *valueColumn,
			Unit:        *unit,
		}
		if *synonyms != "" {
			for _, s := range strings.Split(*synonyms, ",") {
				if s = strings.TrimSpace(s); s != "" {
					subject.Synonyms = append(subject.Synonyms, s)
				}
			}
		}
		if err := addSubject(&subject); err != nil {
			fmt.Printf("Error adding subject: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added subject: %s\n", *idAdd)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.Load(catalogPath)
		if err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Catalog validation passed. Found %d subjects.\n", len(reg.Subjects()))

	case "list":
		listCmd.Parse(os.Args[2:])
		reg, err := registry.Load(catalogPath)
		if err != nil {
			fmt.Printf("Error loading catalog: %v\n", err)
			os.Exit(1)
		}
		for _, s := range reg.Subjects() {
			fmt.Printf("%-20s %-16s %s.%s\n", s.ID, s.Name, s.FactTable, s.ValueColumn)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func addSubject(subject *registry.Subject) error {
	catalog, err := loadCatalog(catalogPath)
	if err != nil {
		if os.IsNotExist(err) {
			catalog = &registry.Catalog{Version: "1.0.0"}
		} else {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	for _, existing := range catalog.Subjects {
		if existing.ID == subject.ID {
			return fmt.Errorf("subject with ID %s already exists", subject.ID)
		}
		if strings.EqualFold(existing.Name, subject.Name) || existing.Code == subject.Code {
			return fmt.Errorf("subject %s already claims name %q or code %q", existing.ID, subject.Name, subject.Code)
		}
	}

	catalog.Subjects = append(catalog.Subjects, *subject)
	catalog.LastUpdated = time.Now().Format("2006-01-02")

	if err := saveCatalog(catalog, catalogPath); err != nil {
		return err
	}

	// Re-run the schema and alias checks the services apply at startup,
	// so a bad entry never reaches a deploy.
	if _, err := registry.Load(catalogPath); err != nil {
		return fmt.Errorf("catalog invalid after add: %w", err)
	}
	return nil
}

func loadCatalog(path string) (*registry.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var catalog registry.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &catalog, nil
}

func saveCatalog(catalog *registry.Catalog, path string) error {
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func help() {
	fmt.Println(`Usage: registry-updater <command> [flags]

Commands:
  add       Add a subject to the catalog
  validate  Validate the catalog against the schema
  list      Print registered subjects

Run 'registry-updater <command> -h' for flags.`)
}
