package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"contentforge/internal/blueprint"
	"contentforge/internal/forgeconfig"
	"contentforge/internal/storage"
	"contentforge/internal/value"
)

// loadBlueprintTree loads and links the blueprint tree rooted at entryPath,
// scoping the FileReader's sandbox to entryPath's containing directory so
// producers/modules imports resolve relative to the blueprint file rather
// than the process's working directory.
func loadBlueprintTree(entryPath string) (*blueprint.BlueprintTree, error) {
	root := filepath.Dir(entryPath)
	name := filepath.Base(entryPath)
	return blueprint.LoadTree(name, blueprint.NewFileReader(root))
}

// loadInputs reads a JSON object file mapping input names to literal values
// and decodes it into the value.Value form plan.BuildPlan expects. An empty
// path yields an empty input set.
func loadInputs(path string) (map[string]value.Value, error) {
	inputs := map[string]value.Value{}
	if path == "" {
		return inputs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inputs file: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding inputs file: %w", err)
	}

	for name, v := range raw {
		val, err := value.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("converting input %q: %w", name, err)
		}
		inputs[name] = val
	}
	return inputs, nil
}

// loadCurrentManifest resolves movieId's current materialized manifest, if
// any. A movie with no prior build yields an empty manifest at revision 0
// rather than an error, so a first build has a valid (if empty) baseline to
// plan and evaluate conditions against.
func loadCurrentManifest(cfg *forgeconfig.Config, movieID string) (*storage.Manifest, error) {
	sandbox, err := storage.NewSandbox(cfg.Workspace.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("opening workspace sandbox: %w", err)
	}
	materializer := storage.NewMaterializer(sandbox, storage.NewEventLog(sandbox))

	pointer, ok, err := materializer.ReadCurrentPointer(movieID)
	if err != nil {
		return nil, fmt.Errorf("reading current pointer: %w", err)
	}
	if !ok {
		return &storage.Manifest{Artefacts: map[string]storage.ManifestArtefact{}}, nil
	}
	return materializer.ReadManifest(pointer.ManifestPath)
}
