package blueprint

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// rawDocument mirrors the on-disk YAML shape, including legacy synonyms
// (`artefacts`/`artifacts`, `modules`/`producers`) that are accepted during
// parsing and normalized away immediately, per §4.1 step 5.
type rawDocument struct {
	Meta Meta `yaml:"meta"`

	Inputs []InputDef `yaml:"inputs"`

	Artifacts     []ArtifactDef `yaml:"artifacts"`
	LegacyArtifacts []ArtifactDef `yaml:"artefacts"`

	Loops []LoopDef `yaml:"loops"`

	Producers     []ProducerImportDef `yaml:"producers"`
	LegacyModules []ProducerImportDef `yaml:"modules"`

	Connections []EdgeDef `yaml:"connections"`
	Collectors  []CollectorDef `yaml:"collectors"`
	Conditions  map[string]ConditionDef `yaml:"conditions"`
	Models      []ModelDef `yaml:"models"`
}

// parseDocument decodes raw YAML bytes into a normalized BlueprintDocument.
// It performs no cross-document reference resolution; that happens during
// tree linking (loader.go) and structural validation (internal/validate).
func parseDocument(sourcePath string, data []byte) (*BlueprintDocument, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &SchemaError{DocumentPath: sourcePath, Reason: fmt.Sprintf("invalid YAML: %v", err)}
	}

	if raw.Meta.ID == "" {
		return nil, &SchemaError{DocumentPath: sourcePath, Reason: "missing required meta.id"}
	}

	artifacts, err := mergeLegacy(sourcePath, "artifacts", raw.Artifacts, "artefacts", raw.LegacyArtifacts)
	if err != nil {
		return nil, err
	}
	producers, err := mergeLegacy(sourcePath, "producers", raw.Producers, "modules", raw.LegacyModules)
	if err != nil {
		return nil, err
	}

	if len(producers) > 0 && len(raw.Models) > 0 {
		return nil, &VersionMismatchError{DocumentPath: sourcePath}
	}

	if len(artifacts) == 0 {
		return nil, &SchemaError{DocumentPath: sourcePath, Reason: "document declares zero artifacts"}
	}

	for i, e := range raw.Connections {
		if e.If != "" && e.Conditions != nil {
			return nil, &SchemaError{
				DocumentPath: sourcePath,
				Reason:       fmt.Sprintf("connection[%d] (%s -> %s) sets both `if` and `conditions`", i, e.From, e.To),
			}
		}
	}

	return &BlueprintDocument{
		Meta:            raw.Meta,
		Inputs:          raw.Inputs,
		Artifacts:       artifacts,
		Loops:           raw.Loops,
		ProducerImports: producers,
		Edges:           raw.Connections,
		Collectors:      raw.Collectors,
		Conditions:      raw.Conditions,
		Models:          raw.Models,
		SourcePath:      sourcePath,
	}, nil
}

// mergeLegacy picks the populated one of a canonical/legacy field pair,
// rejecting documents that set both (ambiguous authoring intent).
func mergeLegacy[T any](sourcePath, canonicalKey string, canonical []T, legacyKey string, legacy []T) ([]T, error) {
	if len(canonical) > 0 && len(legacy) > 0 {
		return nil, &SchemaError{
			DocumentPath: sourcePath,
			Reason:       fmt.Sprintf("document sets both `%s` and legacy `%s`", canonicalKey, legacyKey),
		}
	}
	if len(legacy) > 0 {
		return legacy, nil
	}
	return canonical, nil
}
